package order

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckTransition(t *testing.T) {
	tests := []struct {
		from    Status
		to      Status
		wantErr error
	}{
		{from: StatusPending, to: StatusProcessing},
		{from: StatusProcessing, to: StatusShipped},
		{from: StatusPending, to: StatusCancelled},
		{from: StatusShipped, to: StatusRefunded},
		{from: StatusProcessing, to: StatusCancelled},
		{from: StatusPending, to: StatusShipped, wantErr: ErrInvalidTransition},
		{from: StatusShipped, to: StatusProcessing, wantErr: ErrInvalidTransition},
		{from: StatusPending, to: StatusPending, wantErr: ErrInvalidTransition},
		{from: StatusShipped, to: StatusDelivered, wantErr: ErrDeliveryCodeRequired},
		{from: StatusPending, to: StatusDelivered, wantErr: ErrDeliveryCodeRequired},
		{from: StatusDelivered, to: StatusRefunded, wantErr: ErrInvalidTransition},
		{from: StatusCancelled, to: StatusProcessing, wantErr: ErrInvalidTransition},
		{from: StatusRefunded, to: StatusCancelled, wantErr: ErrInvalidTransition},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			err := CheckTransition(tt.from, tt.to)
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestCheckTransition_UnknownStatus(t *testing.T) {
	var ve *ValidationError
	require.ErrorAs(t, CheckTransition(StatusPending, "Lost"), &ve)
	assert.Equal(t, "status", ve.Field)
}

func TestStatus_Terminal(t *testing.T) {
	assert.True(t, StatusDelivered.Terminal())
	assert.True(t, StatusCancelled.Terminal())
	assert.True(t, StatusRefunded.Terminal())
	assert.False(t, StatusShipped.Terminal())
}
