package profiles

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ gateway = (*gatewayMock)(nil)

type gatewayMock struct {
	saved       map[string]Profile
	loadErr     error
	saveErr     error
	loadCounter int
}

func newGatewayMock() *gatewayMock {
	return &gatewayMock{
		saved: map[string]Profile{},
	}
}

func (g *gatewayMock) LoadProfile(_ context.Context, userID string) (*Profile, error) {
	g.loadCounter++
	if g.loadErr != nil {
		return nil, g.loadErr
	}
	profile, ok := g.saved[userID]
	if !ok {
		return nil, nil
	}
	return &profile, nil
}

func (g *gatewayMock) SaveProfile(_ context.Context, userID string, profile Profile) error {
	if g.saveErr != nil {
		return g.saveErr
	}
	g.saved[userID] = profile
	return nil
}

func testProfile() Profile {
	return Profile{Name: "Mila", Age: 30, WeightKg: 65, HeightCm: 172}
}

func TestStore_SetAndGet(t *testing.T) {
	ctx := context.Background()
	gw := newGatewayMock()
	store := NewStore(gw)

	_, err := store.Get(ctx, "mila")
	assert.ErrorIs(t, err, ErrNoProfile)

	require.NoError(t, store.Set(ctx, "mila", testProfile()))

	got, err := store.Get(ctx, "mila")
	require.NoError(t, err)
	assert.Equal(t, testProfile(), *got)
	assert.Equal(t, testProfile(), gw.saved["mila"])
}

func TestStore_SetOverwritesWholesale(t *testing.T) {
	ctx := context.Background()
	store := NewStore(newGatewayMock())

	require.NoError(t, store.Set(ctx, "mila", testProfile()))

	replacement := Profile{Name: "Mila D", Age: 31, WeightKg: 64, HeightCm: 172}
	require.NoError(t, store.Set(ctx, "mila", replacement))

	got, err := store.Get(ctx, "mila")
	require.NoError(t, err)
	assert.Equal(t, replacement, *got)
}

func TestStore_SetValidates(t *testing.T) {
	ctx := context.Background()
	gw := newGatewayMock()
	store := NewStore(gw)

	invalid := testProfile()
	invalid.Age = 150
	err := store.Set(ctx, "mila", invalid)
	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Empty(t, gw.saved)
}

func TestStore_SetNotCachedOnSaveFailure(t *testing.T) {
	ctx := context.Background()
	gw := newGatewayMock()
	store := NewStore(gw)

	gw.saveErr = errors.New("disk full")
	require.Error(t, store.Set(ctx, "mila", testProfile()))

	gw.saveErr = nil
	_, err := store.Get(ctx, "mila")
	assert.ErrorIs(t, err, ErrNoProfile)
}

func TestStore_GetFallsBackToGatewayOnce(t *testing.T) {
	ctx := context.Background()
	gw := newGatewayMock()
	gw.saved["mila"] = testProfile()
	store := NewStore(gw)

	got, err := store.Get(ctx, "mila")
	require.NoError(t, err)
	assert.Equal(t, testProfile(), *got)

	// second read is served from memory
	_, err = store.Get(ctx, "mila")
	require.NoError(t, err)
	assert.Equal(t, 1, gw.loadCounter)
}

func TestStore_Age(t *testing.T) {
	ctx := context.Background()
	store := NewStore(newGatewayMock())

	_, err := store.Age(ctx, "mila")
	assert.ErrorIs(t, err, ErrNoProfile)

	require.NoError(t, store.Set(ctx, "mila", testProfile()))
	age, err := store.Age(ctx, "mila")
	require.NoError(t, err)
	assert.Equal(t, 30, age)
}
