// Command issuetoken prints a bearer token for local testing.
package main

import (
	"flag"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/HanTheDev/resumatch/internal/auth"
	"github.com/HanTheDev/resumatch/internal/config"
)

func main() {
	user := flag.String("user", "", "user id to put in the subject claim")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("failed to load config")
	}

	token, err := auth.GenerateToken(*user, cfg.JWTSecret, *ttl)
	if err != nil {
		logrus.WithError(err).Fatal("failed to generate token")
	}
	fmt.Println(token)
}
