package enhance_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/legendx/enhancebot/common/model"
	"github.com/legendx/enhancebot/modules/enhance"
)

type mockRemote struct {
	out   []byte
	err   error
	block bool // when set, waits for the context deadline
}

func (m *mockRemote) Enhance(ctx context.Context, data []byte) ([]byte, error) {
	if m.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return m.out, m.err
}

func TestService_LocalOnly(t *testing.T) {
	svc := enhance.NewService(nil, time.Second, 2, zerolog.Nop())

	outcome, err := svc.Enhance(context.Background(), asJPEG(t, gradientImage(100, 80)))
	require.NoError(t, err)
	require.Equal(t, model.SourceLocal, outcome.Source)
	require.NotEmpty(t, outcome.Data)
	require.NoError(t, outcome.RemoteErr)
}

func TestService_RemoteSuccess(t *testing.T) {
	remoteOut := []byte("remote-bytes")
	svc := enhance.NewService(&mockRemote{out: remoteOut}, time.Second, 2, zerolog.Nop())

	outcome, err := svc.Enhance(context.Background(), asJPEG(t, gradientImage(100, 80)))
	require.NoError(t, err)
	require.Equal(t, model.SourceRemote, outcome.Source)
	require.Equal(t, remoteOut, outcome.Data)
}

func TestService_RemoteFailureFallsBack(t *testing.T) {
	remoteErr := errors.New("provider exploded")
	svc := enhance.NewService(&mockRemote{err: remoteErr}, time.Second, 2, zerolog.Nop())

	outcome, err := svc.Enhance(context.Background(), asJPEG(t, gradientImage(100, 80)))
	require.NoError(t, err)
	require.Equal(t, model.SourceLocalFallback, outcome.Source)
	require.NotEmpty(t, outcome.Data)
	require.ErrorIs(t, outcome.RemoteErr, remoteErr)
}

func TestService_RemoteTimeoutFallsBack(t *testing.T) {
	svc := enhance.NewService(&mockRemote{block: true}, 10*time.Millisecond, 2, zerolog.Nop())

	outcome, err := svc.Enhance(context.Background(), asJPEG(t, gradientImage(100, 80)))
	require.NoError(t, err)
	require.Equal(t, model.SourceLocalFallback, outcome.Source)
	require.NotEmpty(t, outcome.Data)
}

func TestService_LocalDecodeFailure(t *testing.T) {
	svc := enhance.NewService(nil, time.Second, 1, zerolog.Nop())

	_, err := svc.Enhance(context.Background(), []byte("not an image"))
	require.ErrorIs(t, err, model.ErrDecode)
}
