package main

import (
	"fmt"

	"filedrop/transfer-api/api"
	"filedrop/transfer-api/config"
	"filedrop/transfer-api/db"
	"filedrop/transfer-api/model"
	"filedrop/transfer-api/security"

	"github.com/gin-gonic/gin"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const idAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

func main() {
	gin.SetMode(gin.ReleaseMode)

	err := config.Setup()
	if err != nil {
		panic(err)
	}

	if *config.InitAdmin {
		if err := initAdmin(); err != nil {
			panic(err)
		}

		fmt.Println("Superuser account ready")
		return
	}

	a, err := api.NewRouter()
	if err != nil {
		panic(err)
	}

	zap.L().Info("Server starting")

	addr := fmt.Sprintf(":%d", viper.GetInt("host.port"))

	if viper.GetBool("host.ssl.enabled") {
		err = a.Router.RunTLS(addr,
			viper.GetString("host.ssl.certificate_path"),
			viper.GetString("host.ssl.certificate_key_path"),
		)
	} else {
		err = a.Router.Run(addr)
	}

	if err != nil {
		panic(err)
	}
}

// initAdmin creates or updates the superuser account from the
// admin.username/admin.password config keys. The admin UI itself lives
// outside this service, this only seeds the principal.
func initAdmin() error {
	d, err := db.New()
	if err != nil {
		return err
	}

	hash, err := security.New().HashPassword(viper.GetString("admin.password"))
	if err != nil {
		return fmt.Errorf("failed to hash admin password, %w", err)
	}

	username := viper.GetString("admin.username")

	var existing model.User

	err = d.Where("username = ?", username).First(&existing).Error
	if err == nil {
		return d.Model(model.User{}).
			Where("id = ?", existing.ID).
			Updates(map[string]any{
				"password_hash": hash,
				"is_superuser":  true,
			}).
			Error
	}

	id, err := gonanoid.Generate(idAlphabet, 16)
	if err != nil {
		return err
	}

	return d.Create(&model.User{
		ID:           id,
		Username:     username,
		PasswordHash: hash,
		IsSuperuser:  true,
	}).Error
}
