package identity

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/mbolis/questionnaire/model"
)

const MockLoginPath = "/mock"

// Mock skips the identity provider: every login is a new fake account
// created between one and ten years ago.
type Mock struct {
	mu    sync.Mutex
	faker *gofakeit.Faker
	now   func() time.Time
}

// NewMock seeds its faker with seed; 0 picks a random seed.
func NewMock(seed int64) *Mock {
	return &Mock{
		faker: gofakeit.New(seed),
		now:   time.Now,
	}
}

func (m *Mock) AuthCodeURL(string) string {
	return MockLoginPath
}

func (m *Mock) Identify(context.Context, string) (model.Identity, error) {
	return m.Identity(), nil
}

func (m *Mock) Identity() model.Identity {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now().UTC()
	created := m.faker.DateRange(now.AddDate(-10, 0, 0), now.AddDate(-1, 0, 0))
	return model.Identity{
		ID:         strconv.FormatInt(int64(m.faker.Number(0, 99999)), 36),
		Name:       m.faker.Username(),
		CreatedUTC: created.UTC().Truncate(time.Second),
	}
}
