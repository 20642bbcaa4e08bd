package profile_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Windi-Fikriyansyah/handloom_be/internal/backend/backendtest"
	"github.com/Windi-Fikriyansyah/handloom_be/internal/chat"
	"github.com/Windi-Fikriyansyah/handloom_be/internal/models"
	"github.com/Windi-Fikriyansyah/handloom_be/internal/profile"
)

func strPtr(s string) *string { return &s }

func setup(t *testing.T) (*profile.Service, models.Profile, models.Profile) {
	t.Helper()
	b := backendtest.New(t)
	ctx := context.Background()
	weaver := models.Profile{Name: "Meera Devi", Email: "meera@loom.in", Password: "x", Role: models.RoleWeaver}
	customer := models.Profile{Email: "asha@mail.in", Password: "x", Role: models.RoleCustomer}
	require.NoError(t, b.InsertRow(ctx, "profiles", &weaver))
	require.NoError(t, b.InsertRow(ctx, "profiles", &customer))
	return profile.NewService(b, 2<<20, zap.NewNop()), weaver, customer
}

func TestUpdate(t *testing.T) {
	svc, weaver, _ := setup(t)
	ctx := context.Background()

	_, err := svc.Update(ctx, weaver.ID.String(), profile.Update{Name: strPtr("   ")})
	assert.ErrorIs(t, err, profile.ErrNameRequired)

	p, err := svc.Update(ctx, weaver.ID.String(), profile.Update{
		Bio:   strPtr(" Third generation weaver "),
		Craft: strPtr("Kanjeevaram silk"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Third generation weaver", p.Bio)
	assert.Equal(t, "Meera Devi", p.Name)

	got, err := svc.Get(ctx, weaver.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "Kanjeevaram silk", got.Craft)

	_, err = svc.Get(ctx, uuid.NewString())
	assert.ErrorIs(t, err, profile.ErrNotFound)
}

func TestUploadAvatar(t *testing.T) {
	svc, weaver, _ := setup(t)
	ctx := context.Background()
	id := weaver.ID.String()

	_, err := svc.UploadAvatar(ctx, id, "me.gif", []byte("gif"))
	assert.ErrorIs(t, err, profile.ErrAvatarType)

	_, err = svc.UploadAvatar(ctx, id, "me.jpg", make([]byte, 2<<20+1))
	assert.ErrorIs(t, err, profile.ErrAvatarTooLarge)

	url, err := svc.UploadAvatar(ctx, id, "me.webp", []byte("webp"))
	require.NoError(t, err)
	assert.Contains(t, url, "/uploads/avatars/"+id+"/avatar_")

	p, err := svc.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, url, p.AvatarURL)
}

func TestDirectory(t *testing.T) {
	svc, weaver, customer := setup(t)
	ctx := context.Background()

	p, err := svc.Participant(ctx, customer.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "asha@mail.in", p.Name, "falls back to email")
	assert.Equal(t, "customer", p.Role)

	_, err = svc.Participant(ctx, uuid.NewString())
	assert.ErrorIs(t, err, chat.ErrUnknownUser)

	weavers, err := svc.ByRole(ctx, "weaver")
	require.NoError(t, err)
	require.Len(t, weavers, 1)
	assert.Equal(t, weaver.ID.String(), weavers[0].ID)

	var _ chat.Directory = svc
}
