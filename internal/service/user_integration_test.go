package service_test

import (
	"github.com/guts-yang/estone-api/internal/domain"
	"github.com/guts-yang/estone-api/internal/repository"
	"github.com/guts-yang/estone-api/internal/service"
)

func (s *IntegrationTestSuite) TestRegister_CreatesProfileAndCart() {
	user := s.registerUser("fresh_user")

	var profileCount, cartCount int
	err := s.DbPool.QueryRow(
		s.Ctx,
		`SELECT COUNT(*) FROM user_profiles WHERE user_id = $1`,
		user.ID,
	).Scan(&profileCount)
	s.Require().NoError(err)
	s.Require().Equal(1, profileCount)

	err = s.DbPool.QueryRow(
		s.Ctx,
		`SELECT COUNT(*) FROM carts WHERE user_id = $1`,
		user.ID,
	).Scan(&cartCount)
	s.Require().NoError(err)
	s.Require().Equal(1, cartCount)
}

func (s *IntegrationTestSuite) TestRegister_DuplicateUsername() {
	s.registerUser("taken_name")

	_, _, err := s.UserService.Register(s.Ctx, service.RegisterInput{
		Username: "taken_name",
		Email:    "other@example.com",
		Password: "secret123",
	})
	s.Require().ErrorIs(err, repository.ErrUsernameTaken)

	// A failed registration must not leave a half-created user behind.
	var userCount int
	qErr := s.DbPool.QueryRow(
		s.Ctx,
		`SELECT COUNT(*) FROM users WHERE username = 'taken_name'`,
	).Scan(&userCount)
	s.Require().NoError(qErr)
	s.Require().Equal(1, userCount)
}

func (s *IntegrationTestSuite) TestLogin() {
	s.registerUser("login_user")

	user, token, err := s.UserService.Login(s.Ctx, "login_user", "secret123")
	s.Require().NoError(err)
	s.Require().NotEmpty(token)
	s.Require().Equal("login_user", user.Username)

	_, _, err = s.UserService.Login(s.Ctx, "login_user", "wrong-password")
	s.Require().ErrorIs(err, service.ErrInvalidCredentials)

	_, _, err = s.UserService.Login(s.Ctx, "ghost_user", "secret123")
	s.Require().ErrorIs(err, service.ErrInvalidCredentials)
}

func (s *IntegrationTestSuite) TestLogin_DisabledAccount() {
	user := s.registerUser("disabled_user")

	_, err := s.DbPool.Exec(
		s.Ctx,
		`UPDATE users SET status = 'inactive' WHERE id = $1`,
		user.ID,
	)
	s.Require().NoError(err)

	_, _, err = s.UserService.Login(s.Ctx, "disabled_user", "secret123")
	s.Require().ErrorIs(err, service.ErrAccountDisabled)
}

func (s *IntegrationTestSuite) TestUpdateProfile() {
	user := s.registerUser("profile_user")

	username := "renamed_user"
	name := "Ken Carson"
	city := "Atlanta"
	updated, profile, err := s.UserService.UpdateProfile(s.Ctx, user.ID, &domain.UpdateUserInput{
		Username: &username,
		Name:     &name,
		City:     &city,
	})
	s.Require().NoError(err)
	s.Require().Equal("renamed_user", updated.Username)
	s.Require().Equal("Ken Carson", profile.Name)
	s.Require().Equal("Atlanta", profile.City)

	// The new name works for login, the old one is gone.
	_, _, err = s.UserService.Login(s.Ctx, "renamed_user", "secret123")
	s.Require().NoError(err)
	_, _, err = s.UserService.Login(s.Ctx, "profile_user", "secret123")
	s.Require().ErrorIs(err, service.ErrInvalidCredentials)
}

func (s *IntegrationTestSuite) TestUpdateProfile_UsernameConflict() {
	s.registerUser("occupied_name")
	user := s.registerUser("conflicting_user")

	username := "occupied_name"
	name := "Should Not Stick"
	_, _, err := s.UserService.UpdateProfile(s.Ctx, user.ID, &domain.UpdateUserInput{
		Username: &username,
		Name:     &name,
	})
	s.Require().ErrorIs(err, repository.ErrUsernameTaken)

	// The conflict rolls back the profile change too.
	unchanged, err := s.UserService.GetMe(s.Ctx, user.ID)
	s.Require().NoError(err)
	s.Require().Equal("conflicting_user", unchanged.Username)

	var profileName string
	qErr := s.DbPool.QueryRow(
		s.Ctx,
		`SELECT name FROM user_profiles WHERE user_id = $1`,
		user.ID,
	).Scan(&profileName)
	s.Require().NoError(qErr)
	s.Require().Empty(profileName)
}

func (s *IntegrationTestSuite) TestChangePassword() {
	user := s.registerUser("rotating_user")

	err := s.UserService.ChangePassword(s.Ctx, user.ID, "wrong-password", "newsecret456")
	s.Require().ErrorIs(err, service.ErrWrongPassword)

	err = s.UserService.ChangePassword(s.Ctx, user.ID, "secret123", "newsecret456")
	s.Require().NoError(err)

	_, _, err = s.UserService.Login(s.Ctx, "rotating_user", "secret123")
	s.Require().ErrorIs(err, service.ErrInvalidCredentials)
	_, _, err = s.UserService.Login(s.Ctx, "rotating_user", "newsecret456")
	s.Require().NoError(err)
}

func (s *IntegrationTestSuite) TestAdminUserManagement() {
	first := s.registerUser("managed_one")
	s.registerUser("managed_two")

	users, total, err := s.UserService.ListUsers(s.Ctx, 20, 0)
	s.Require().NoError(err)
	s.Require().Equal(int64(2), total)
	s.Require().Len(users, 2)

	fetched, err := s.UserService.GetUser(s.Ctx, first.ID)
	s.Require().NoError(err)
	s.Require().Equal("managed_one", fetched.Username)

	disabled, err := s.UserService.UpdateUserStatus(s.Ctx, first.ID, domain.UserStatusInactive)
	s.Require().NoError(err)
	s.Require().Equal(domain.UserStatusInactive, disabled.Status)

	// A disabled account can no longer sign in.
	_, _, err = s.UserService.Login(s.Ctx, "managed_one", "secret123")
	s.Require().ErrorIs(err, service.ErrAccountDisabled)

	_, err = s.UserService.GetUser(s.Ctx, 999999)
	s.Require().ErrorIs(err, repository.ErrUserNotFound)
}
