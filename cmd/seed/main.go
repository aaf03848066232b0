package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"

	"tleenotes/internal/cache"
	"tleenotes/internal/config"
	"tleenotes/internal/db"
	"tleenotes/internal/logger"
	"tleenotes/internal/repository"
	"tleenotes/internal/service"
)

const fetchTimeout = 30 * time.Second

// seedNote is one entry of the seed document.
type seedNote struct {
	Identifier string `json:"identifier"`
	Note       string `json:"note"`
	Author     string `json:"author"`
}

func main() {
	file := flag.String("file", "", "path to a JSON array of notes")
	url := flag.String("url", "", "URL serving a JSON array of notes")
	flag.Parse()

	ctx := context.Background()
	cfg, err := config.Load(ctx)
	if err != nil {
		bootLog := logger.New(logger.Options{})
		bootLog.Fatal().Err(err).Msg("load config")
	}
	log := logger.New(logger.Options{Level: cfg.LogLevel, Pretty: cfg.IsDevelopment()})

	if (*file == "") == (*url == "") {
		log.Fatal().Msg("exactly one of -file or -url is required")
	}

	if err := run(ctx, cfg, log, *file, *url); err != nil {
		log.Fatal().Err(err).Msg("seed failed")
	}
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger, file, url string) error {
	var (
		notes []seedNote
		err   error
	)
	if file != "" {
		log.Info().Str("file", file).Msg("reading notes")
		notes, err = readFile(file)
	} else {
		log.Info().Str("url", url).Msg("fetching notes")
		notes, err = fetch(ctx, url)
	}
	if err != nil {
		return err
	}
	log.Info().Int("count", len(notes)).Msg("notes loaded")

	gormDB, err := db.Open(db.Options{
		Driver: cfg.Database.Driver,
		DSN:    cfg.Database.URL,
	}, log)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close(gormDB) }()

	if err := db.Migrate(ctx, gormDB); err != nil {
		return err
	}

	cacheClient := cache.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	defer func() { _ = cacheClient.Close() }()

	svc := service.NewNoteService(repository.NewNoteRepository(gormDB), cacheClient, log)

	inputs := make([]service.NoteInput, 0, len(notes))
	for _, n := range notes {
		inputs = append(inputs, service.NoteInput{Identifier: n.Identifier, Note: n.Note, Author: n.Author})
	}

	result, err := svc.Import(ctx, inputs)
	if err != nil {
		return err
	}

	log.Info().
		Int("created", result.Created).
		Int("updated", result.Updated).
		Int("total", result.Total()).
		Msg("seed completed")
	return nil
}

func readFile(path string) ([]seedNote, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return decode(f)
}

func fetch(ctx context.Context, url string) ([]seedNote, error) {
	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status code %d", url, resp.StatusCode)
	}
	return decode(resp.Body)
}

func decode(r io.Reader) ([]seedNote, error) {
	var notes []seedNote
	if err := json.NewDecoder(r).Decode(&notes); err != nil {
		return nil, fmt.Errorf("parse notes: %w", err)
	}
	if len(notes) == 0 {
		return nil, errors.New("no notes to import")
	}
	return notes, nil
}
