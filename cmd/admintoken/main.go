// Команда admintoken выпускает JWT для административного API.
// Секрет и срок жизни берутся из того же конфига, что и у api.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/magabrotheeeer/subscription-notifier/internal/config"
	"github.com/magabrotheeeer/subscription-notifier/internal/lib/jwt"
	"github.com/magabrotheeeer/subscription-notifier/internal/lib/sl"
)

func main() {
	username := flag.String("user", "", "имя администратора")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	if *username == "" {
		logger.Error("flag -user is required")
		os.Exit(2)
	}

	cfg := config.MustLoad()
	if cfg.JWTSecretKey == "" {
		logger.Error("jwt_secret_key is not set")
		os.Exit(1)
	}

	token, err := jwt.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL).GenerateToken(*username, jwt.RoleAdmin)
	if err != nil {
		logger.Error("failed to generate token", sl.Err(err))
		os.Exit(1)
	}
	fmt.Println(token)
}
