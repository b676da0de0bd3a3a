package database_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/tapcart/internal/database/dbtest"
	"github.com/example/tapcart/internal/models"
	"github.com/example/tapcart/internal/utils"
)

func TestStoredHashRoundTripsThroughTable(t *testing.T) {
	db := dbtest.New(t)

	hash, err := utils.NewPasswordHasher("").Hash("Secret1")
	require.NoError(t, err)

	require.NoError(t, db.Create(&models.StoreAccount{
		StoreID:      "shop1",
		Email:        "shop1@example.com",
		PasswordHash: hash,
	}).Error)
	require.NoError(t, db.Create(&models.AdminUser{
		Email:        "root@example.com",
		PasswordHash: utils.ParseStoredHash("sha:U2VjcmV0MQ=="),
	}).Error)

	var store models.StoreAccount
	require.NoError(t, db.First(&store, "store_id = ?", "shop1").Error)
	assert.Equal(t, models.StoreStatusPending, store.Status)
	assert.Equal(t, utils.FormatScrypt, store.PasswordHash.Format)
	assert.Equal(t, hash.String(), store.PasswordHash.String())

	var admin models.AdminUser
	require.NoError(t, db.First(&admin, "email = ?", "root@example.com").Error)
	assert.Equal(t, utils.FormatLegacyBase64, admin.PasswordHash.Format)
}

func TestProductStockCannotGoNegative(t *testing.T) {
	db := dbtest.New(t)

	product := models.Product{StoreID: "shop1", Name: "Mug", Price: 120, Stock: 1}
	require.NoError(t, db.Create(&product).Error)

	err := db.Model(&models.Product{}).Where("id = ?", product.ID).
		Update("stock", -1).Error
	assert.Error(t, err)
}
