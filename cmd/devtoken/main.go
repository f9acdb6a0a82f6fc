// Command devtoken prints a signed token for local testing of the presence
// service, using the same claim shape as the ticketing app.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/mmuslimabdulj/talep-presence/internal/auth"
	"github.com/mmuslimabdulj/talep-presence/internal/config"
	"github.com/mmuslimabdulj/talep-presence/internal/domain"
	"github.com/spf13/pflag"
)

func main() {
	envFile := pflag.String("env-file", ".env", "path to an optional .env file")
	id := pflag.Int64("id", 1, "user id")
	first := pflag.String("first", "Demo", "first name (ad)")
	last := pflag.String("last", "Admin", "last name (soyad)")
	username := pflag.String("username", "demo", "username")
	role := pflag.String("role", domain.RoleAdmin, "role: user, admin or manager")
	ttl := pflag.Duration("ttl", domain.DefaultTokenTTL, "token lifetime")
	secret := pflag.String("secret", "", "signing secret (defaults to JWT_SECRET)")
	pflag.Parse()

	_ = godotenv.Load(*envFile)

	key := *secret
	if key == "" {
		key = config.LoadFromEnv().JWTSecret
	}

	token, err := auth.NewIssuer(key, *ttl).Issue(domain.Principal{
		ID:        *id,
		FirstName: *first,
		LastName:  *last,
		Username:  *username,
		Role:      *role,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Println(token)
}
