package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/bazaar-checkout/internal/domain/auth"
	"github.com/xenking/bazaar-checkout/internal/domain/coupon"
	"github.com/xenking/bazaar-checkout/internal/domain/product"
	"github.com/xenking/bazaar-checkout/internal/domain/store"
	"github.com/xenking/bazaar-checkout/internal/storage/postgres"
)

const (
	vendorID   = "vendor-1"
	vendor2ID  = "vendor-2"
	customerID = "customer-1"
	adminID    = "admin-1"
)

var stores = []store.Store{
	{
		ID:      "store-koramangala",
		OwnerID: vendorID,
		Name:    "Koramangala Fresh",
		Address: store.Address{Street: "80 Feet Rd", City: "Bengaluru", State: "Karnataka", PinCode: "560034"},
		Active:  true,
	},
	{
		ID:      "store-indiranagar",
		OwnerID: vendor2ID,
		Name:    "Indiranagar Organics",
		Address: store.Address{Street: "100 Feet Rd", City: "Bengaluru", State: "Karnataka", PinCode: "560038"},
		Active:  true,
	},
}

var products = []product.Product{
	{ID: "prod-tomato", StoreID: "store-koramangala", Name: "Tomato", Price: decimal.RequireFromString("40"), Stock: 120, Unit: "kg", Image: "/images/tomato.jpg"},
	{ID: "prod-onion", StoreID: "store-koramangala", Name: "Onion", Price: decimal.RequireFromString("35.50"), Stock: 200, Unit: "kg", Image: "/images/onion.jpg"},
	{ID: "prod-milk", StoreID: "store-koramangala", Name: "Toned Milk", Price: decimal.RequireFromString("27"), Stock: 60, Unit: "500ml", Image: "/images/milk.jpg"},
	{ID: "prod-mango", StoreID: "store-indiranagar", Name: "Alphonso Mango", Price: decimal.RequireFromString("450"), Stock: 25, Unit: "dozen", Image: "/images/mango.jpg"},
	{ID: "prod-rice", StoreID: "store-indiranagar", Name: "Sona Masoori Rice", Price: decimal.RequireFromString("68"), Stock: 3, Unit: "kg", Image: "/images/rice.jpg"},
}

var coupons = []coupon.Coupon{
	{
		ID:           "coupon-welcome",
		Code:         "WELCOME10",
		DiscountType: coupon.DiscountPercentage,
		Value:        decimal.NewFromInt(10),
		MaxDiscount:  decimal.NewFromInt(100),
		Description:  "10% off your first order, up to 100",
		Active:       true,
	},
	{
		ID:           "coupon-flat50",
		Code:         "FLAT50",
		DiscountType: coupon.DiscountFixed,
		Value:        decimal.NewFromInt(50),
		MinItems:     3,
		Description:  "50 off orders with 3 or more items",
		MaxUses:      100,
		Active:       true,
	},
}

var principals = []auth.Principal{
	{UserID: customerID, Name: "Asha Customer", Email: "asha@example.com", Role: auth.RoleCustomer},
	{UserID: vendorID, Name: "Ravi Vendor", Email: "ravi@example.com", Role: auth.RoleVendor},
	{UserID: adminID, Name: "Admin", Email: "admin@example.com", Role: auth.RoleAdmin},
}

func main() {
	_ = godotenv.Load()

	var (
		databaseURL string
		jwtSecret   string
		tokenTTL    time.Duration
	)
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&jwtSecret, "jwt-secret", "", "secret for development tokens (or JWT_SECRET env)")
	flag.DurationVar(&tokenTTL, "token-ttl", 30*24*time.Hour, "lifetime of development tokens")
	flag.Parse()

	lg, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer func() { _ = lg.Sync() }()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		lg.Fatal("database URL is required: set --database-url or DATABASE_URL")
	}
	if jwtSecret == "" {
		jwtSecret = os.Getenv("JWT_SECRET")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, lg, databaseURL); err != nil {
		lg.Fatal("Seed failed", zap.Error(err))
	}
	lg.Info("Seed completed")

	if jwtSecret == "" {
		lg.Warn("JWT secret not set, skipping development tokens")
		return
	}
	if err := printTokens(auth.NewTokens([]byte(jwtSecret)), tokenTTL); err != nil {
		lg.Fatal("Issue tokens", zap.Error(err))
	}
}

func run(ctx context.Context, lg *zap.Logger, databaseURL string) error {
	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	lg.Info("Running migrations")
	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	storeRepo := postgres.NewStoreRepository(pool)
	for _, s := range stores {
		if err := storeRepo.Upsert(ctx, s); err != nil {
			return err
		}
		lg.Info("Upserted store", zap.String("id", s.ID), zap.String("pincode", s.Address.PinCode))
	}

	productRepo := postgres.NewProductRepository(pool)
	for _, p := range products {
		if err := productRepo.Upsert(ctx, p); err != nil {
			return err
		}
		lg.Info("Upserted product", zap.String("id", p.ID), zap.Int("stock", p.Stock))
	}

	couponRepo := postgres.NewCouponRepository(pool)
	for _, c := range coupons {
		if err := couponRepo.Upsert(ctx, c); err != nil {
			return err
		}
		lg.Info("Upserted coupon", zap.String("code", c.Code), zap.String("description", c.Description))
	}
	return nil
}

func printTokens(tokens *auth.Tokens, ttl time.Duration) error {
	for _, p := range principals {
		tok, err := tokens.Issue(p, ttl)
		if err != nil {
			return errors.Wrapf(err, "issue token for %s", p.UserID)
		}
		fmt.Printf("%s (%s):\n  Authorization: Bearer %s\n", p.Role, p.UserID, tok)
	}
	return nil
}
