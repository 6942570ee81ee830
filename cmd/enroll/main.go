package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/theleanbow/meroshare-automation/internal/accounts"
	"github.com/theleanbow/meroshare-automation/internal/config"
	"github.com/theleanbow/meroshare-automation/internal/prompt"
	"github.com/theleanbow/meroshare-automation/internal/storage"
	"github.com/theleanbow/meroshare-automation/internal/vault"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("%v", err)
	}

	ctx := context.Background()

	v, err := vault.New(cfg.SecretSeed)
	if err != nil {
		log.Fatalf("%v", err)
	}

	var repo accounts.Repository
	if cfg.DatabaseDSN != "" {
		db, err := storage.Open(ctx, cfg.DatabaseDSN)
		if err != nil {
			log.Fatalf("%v", err)
		}
		defer db.Close()
		if err := storage.RunMigrations(ctx, db); err != nil {
			log.Fatalf("%v", err)
		}
		repo = accounts.NewPostgresRepository(db)
	} else {
		repo = accounts.NewJSONFileRepository(cfg.AccountsPath)
	}

	creds, err := read(bufio.NewReader(os.Stdin), os.Stdout)
	if err != nil {
		log.Fatalf("%v", err)
	}

	svc := accounts.NewService(repo, v)
	acc, err := svc.Enroll(ctx, creds)
	creds.Wipe()
	if err != nil {
		log.Fatalf("%v", err)
	}

	fmt.Printf("Enrolled %s (id %s)\n", acc.Username, acc.ID)
}

func read(in *bufio.Reader, out *os.File) (accounts.Credentials, error) {
	var creds accounts.Credentials
	var err error

	if creds.FullName, err = prompt.Text(in, "Full name", out); err != nil {
		return creds, err
	}
	if creds.BOID, err = prompt.Text(in, "BOID", out); err != nil {
		return creds, err
	}
	if creds.DPID, err = prompt.Text(in, "DP id (e.g. 130)", out); err != nil {
		return creds, err
	}
	if creds.Username, err = prompt.Text(in, "Username", out); err != nil {
		return creds, err
	}
	if creds.Password, err = prompt.Secret("Password", out); err != nil {
		return creds, err
	}
	if creds.CRNNumber, err = prompt.Secret("CRN number", out); err != nil {
		return creds, err
	}
	if creds.PIN, err = prompt.Secret("Transaction PIN", out); err != nil {
		return creds, err
	}
	return creds, nil
}
