package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/stemsi/formbank-backend/internal/config"
	"github.com/stemsi/formbank-backend/internal/logger"
	"github.com/stemsi/formbank-backend/internal/service"
	"golang.org/x/term"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)

	// ─── CLI Input ─────────────────────────────────────────────────────
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("=== Issue Editor Token ===")

	// Author ID
	fmt.Print("Enter Author ID: ")
	authorID, _ := reader.ReadString('\n')
	authorID = strings.TrimSpace(authorID)
	if authorID == "" {
		fmt.Println("Error: Author ID is required")
		return
	}

	// Display name
	fmt.Print("Enter Name (optional): ")
	name, _ := reader.ReadString('\n')
	name = strings.TrimSpace(name)

	// Secret
	if cfg.JWTSecret == "" {
		fmt.Print("JWT_SECRET not set. Enter signing secret: ")
		byteSecret, err := term.ReadPassword(int(syscall.Stdin))
		if err != nil {
			fmt.Println("\nError reading secret")
			return
		}
		fmt.Println() // Newline after secret input
		cfg.JWTSecret = strings.TrimSpace(string(byteSecret))
		if len(cfg.JWTSecret) < 16 {
			fmt.Println("Error: Secret must be at least 16 characters")
			return
		}
	}

	// ─── Issue ─────────────────────────────────────────────────────────
	authService := service.NewAuthService(cfg)
	token, err := authService.GenerateEditorToken(authorID, name)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to issue token")
	}

	fmt.Println("\nToken issued successfully!")
	fmt.Printf("Author:  %s\n", authorID)
	fmt.Printf("Expires: in %s\n", cfg.JWTExpiry)
	fmt.Println(token)
}
