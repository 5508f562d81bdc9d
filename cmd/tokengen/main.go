// cmd/tokengen/main.go
//
// tokengen mints staff access tokens. The API carries no user store, so
// tokens are issued out of band with this tool and handed to staff devices as
// Bearer credentials. The embedded identity is what mutating endpoints stamp
// into audit fields (created_by, settled_by).
package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/your-org/bakery-backend/internal/config"
	"github.com/your-org/bakery-backend/internal/pkg/auth"
)

func main() {
	userID := flag.Uint("user-id", 0, "staff user id stamped into audit fields")
	name := flag.String("name", "", "staff display name")
	flag.Parse()

	if *userID == 0 || *name == "" {
		log.Fatal("both -user-id and -name are required")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	token, err := auth.NewJWTManager(cfg).GenerateAccessToken(*userID, *name)
	if err != nil {
		log.Fatalf("Failed to generate token: %v", err)
	}

	fmt.Println(token)
}
