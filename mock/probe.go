package mock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/verisend/verisend"
)

// Prober is a mock implementation of verisend.Prober
type Prober struct {
	mock.Mock
}

func (m *Prober) Probe(ctx context.Context, url string) (verisend.ProbeResult, error) {
	args := m.Called(ctx, url)
	res, _ := args.Get(0).(verisend.ProbeResult)
	return res, args.Error(1)
}
