// internal/services/auth_service_test.go
package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"

	"github.com/sunnyshore/shop-backend/internal/models"
	"github.com/sunnyshore/shop-backend/internal/utils"
)

type AuthServiceTestSuite struct {
	suite.Suite
	db      *gorm.DB
	carts   *CartService
	service *AuthService
}

func (suite *AuthServiceTestSuite) SetupTest() {
	suite.db = newTestDB(suite.T())
	cfg := testConfig()
	utils.SetJWTSecret(cfg.JWT.SecretKey)
	suite.carts = NewCartService(suite.db, cfg)
	suite.service = NewAuthService(suite.db, cfg, suite.carts)
}

func (suite *AuthServiceTestSuite) TestRegisterAndLogin() {
	resp, err := suite.service.Register(&RegisterRequest{
		Name:     "Sam Harbor",
		Email:    "Sam@Example.com",
		Password: "Sunny$hore1",
	})
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), "sam@example.com", resp.User.Email)
	assert.Equal(suite.T(), models.UserRoleCustomer, resp.User.Role)
	assert.NotEmpty(suite.T(), resp.AccessToken)
	assert.NotEmpty(suite.T(), resp.RefreshToken)

	login, err := suite.service.Login(&LoginRequest{
		Email:    "sam@example.com",
		Password: "Sunny$hore1",
	}, "")
	assert.NoError(suite.T(), err)
	assert.NotNil(suite.T(), login.User.LastLoginAt)

	claims, err := utils.ValidateJWT(login.AccessToken)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), resp.User.ID.String(), claims.UserID)
}

func (suite *AuthServiceTestSuite) TestRegisterDuplicateEmail() {
	req := &RegisterRequest{Name: "A", Email: "dup@example.com", Password: "Sunny$hore1"}
	_, err := suite.service.Register(req)
	assert.NoError(suite.T(), err)

	_, err = suite.service.Register(req)
	assert.ErrorIs(suite.T(), err, ErrEmailTaken)
}

func (suite *AuthServiceTestSuite) TestLoginWrongPassword() {
	_, err := suite.service.Register(&RegisterRequest{
		Name: "B", Email: "wrong@example.com", Password: "Sunny$hore1",
	})
	assert.NoError(suite.T(), err)

	_, err = suite.service.Login(&LoginRequest{
		Email:    "wrong@example.com",
		Password: "not-the-password",
	}, "")
	assert.ErrorIs(suite.T(), err, ErrInvalidCredentials)

	_, err = suite.service.Login(&LoginRequest{
		Email:    "nobody@example.com",
		Password: "Sunny$hore1",
	}, "")
	assert.ErrorIs(suite.T(), err, ErrInvalidCredentials)
}

func (suite *AuthServiceTestSuite) TestLoginMergesGuestCart() {
	product := createTestProduct(suite.T(), suite.db, "AUTH-1", 10.00, 50)
	_, err := suite.carts.AddItem(models.GuestOwner("guest-login"), product.ID, 2, nil)
	assert.NoError(suite.T(), err)

	resp, err := suite.service.Register(&RegisterRequest{
		Name: "C", Email: "merge-login@example.com", Password: "Sunny$hore1",
	})
	assert.NoError(suite.T(), err)

	_, err = suite.service.Login(&LoginRequest{
		Email:    "merge-login@example.com",
		Password: "Sunny$hore1",
	}, "guest-login")
	assert.NoError(suite.T(), err)

	cart, err := suite.carts.GetOrCreateActiveCart(models.MemberOwner(resp.User.ID))
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), 2, cart.QuantityOf(product.ID, nil))
}

func (suite *AuthServiceTestSuite) TestRefreshToken() {
	resp, err := suite.service.Register(&RegisterRequest{
		Name: "D", Email: "refresh@example.com", Password: "Sunny$hore1",
	})
	assert.NoError(suite.T(), err)

	refreshed, err := suite.service.RefreshToken(resp.RefreshToken)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), resp.User.ID, refreshed.User.ID)
	assert.NotEmpty(suite.T(), refreshed.AccessToken)

	_, err = suite.service.RefreshToken("garbage-token")
	assert.ErrorIs(suite.T(), err, ErrInvalidCredentials)
}

func (suite *AuthServiceTestSuite) TestSuspendedAccountCannotLogin() {
	resp, err := suite.service.Register(&RegisterRequest{
		Name: "E", Email: "suspended@example.com", Password: "Sunny$hore1",
	})
	assert.NoError(suite.T(), err)
	suite.db.Model(resp.User).Update("status", models.UserStatusSuspended)

	_, err = suite.service.Login(&LoginRequest{
		Email:    "suspended@example.com",
		Password: "Sunny$hore1",
	}, "")
	assert.ErrorIs(suite.T(), err, ErrAccountSuspended)
}

func TestAuthServiceSuite(t *testing.T) {
	suite.Run(t, new(AuthServiceTestSuite))
}
