package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/shop-api/internal/apperr"
	"github.com/iliyamo/shop-api/internal/model"
	"github.com/iliyamo/shop-api/internal/utils"
)

func TestSignupThenSignin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.identity.Signup(ctx, model.Guest(), "alice", "pw1", "customer")
	require.NoError(t, err)
	assert.Equal(t, model.RoleCustomer, res.User.Role)
	assert.NotEqual(t, "pw1", res.User.PasswordHash)

	id, err := utils.ParseAccessToken("secret", res.Token)
	require.NoError(t, err)
	assert.Equal(t, res.User.Identity(), id)

	in, err := f.identity.Signin(ctx, "alice", "pw1")
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, in.User.ID)
	assert.NotEmpty(t, in.Token)
}

func TestSigninFailuresAreIndistinguishable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.signup(t, model.Guest(), "alice", "")

	_, wrongPw := f.identity.Signin(ctx, "alice", "nope")
	_, unknown := f.identity.Signin(ctx, "bob", "nope")
	_, wrongCase := f.identity.Signin(ctx, "Alice", "pw-alice")

	requireKind(t, wrongPw, apperr.KindInvalidCredentials)
	requireKind(t, unknown, apperr.KindInvalidCredentials)
	requireKind(t, wrongCase, apperr.KindInvalidCredentials)
	assert.Equal(t, wrongPw.Error(), unknown.Error())
}

func TestSignupRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.signup(t, model.Guest(), "alice", "")

	_, err := f.identity.Signup(ctx, model.Guest(), "alice", "x", "")
	requireKind(t, err, apperr.KindDuplicateUsername)

	res, err := f.identity.Signup(ctx, model.Guest(), "Alice", "x", "")
	require.NoError(t, err, "usernames are case-sensitive")
	assert.Equal(t, model.RoleCustomer, res.User.Role)

	_, err = f.identity.Signup(ctx, model.Guest(), "carol", "x", "superuser")
	requireKind(t, err, apperr.KindInvalidRole)

	_, err = f.identity.Signup(ctx, model.Guest(), "carol", "x", "guest")
	requireKind(t, err, apperr.KindInvalidRole)

	_, err = f.identity.Signup(ctx, model.Guest(), "", "x", "")
	requireKind(t, err, apperr.KindValidation)

	_, err = f.identity.Signup(ctx, model.Guest(), "dave", "x", "admin")
	requireKind(t, err, apperr.KindForbidden)

	customer := f.signup(t, model.Guest(), "erin", "customer")
	_, err = f.identity.Signup(ctx, customer, "dave", "x", "admin")
	requireKind(t, err, apperr.KindForbidden)

	admin := f.admin(t)
	res, err = f.identity.Signup(ctx, admin, "dave", "x", "admin")
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, res.User.Role)
}

func TestEnsureAdminIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.identity.EnsureAdmin(ctx, "root", "rootpw"))
	require.NoError(t, f.identity.EnsureAdmin(ctx, "root", "other"))
	require.NoError(t, f.identity.EnsureAdmin(ctx, "", ""))

	res, err := f.identity.Signin(ctx, "root", "rootpw")
	require.NoError(t, err)
	assert.True(t, res.User.Identity().IsAdmin())
}
