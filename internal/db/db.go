package db

import (
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Connect initializes the database connection and runs migrations.
func Connect(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}

	if err := runMigrations(db); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return db, nil
}

func runMigrations(db *sqlx.DB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS users (
            id SERIAL PRIMARY KEY,
            username TEXT NOT NULL UNIQUE,
            display_name TEXT,
            avatar_url TEXT,
            created_at TIMESTAMPTZ DEFAULT NOW()
        );`,
		`CREATE TABLE IF NOT EXISTS movies (
            id SERIAL PRIMARY KEY,
            title TEXT NOT NULL,
            media_type TEXT NOT NULL DEFAULT 'MOVIE',
            poster_url TEXT,
            backdrop_url TEXT,
            created_at TIMESTAMPTZ DEFAULT NOW()
        );`,
		`CREATE TABLE IF NOT EXISTS seasons (
            id SERIAL PRIMARY KEY,
            movie_id INT NOT NULL REFERENCES movies(id) ON DELETE CASCADE,
            season_number INT NOT NULL,
            UNIQUE(movie_id, season_number)
        );`,
		`CREATE TABLE IF NOT EXISTS episodes (
            id SERIAL PRIMARY KEY,
            season_id INT NOT NULL REFERENCES seasons(id) ON DELETE CASCADE,
            episode_number INT NOT NULL,
            title TEXT,
            video_url TEXT,
            UNIQUE(season_id, episode_number)
        );`,
		`CREATE TABLE IF NOT EXISTS watch_parties (
            id SERIAL PRIMARY KEY,
            host_user_id INT NOT NULL REFERENCES users(id),
            title TEXT NOT NULL,
            movie_id INT NOT NULL REFERENCES movies(id),
            episode_id INT NOT NULL REFERENCES episodes(id),
            is_private BOOLEAN NOT NULL DEFAULT FALSE,
            join_code TEXT UNIQUE,
            scheduled_at TIMESTAMPTZ,
            started_at TIMESTAMPTZ,
            is_active BOOLEAN NOT NULL DEFAULT TRUE,
            is_30m_notified BOOLEAN NOT NULL DEFAULT FALSE,
            is_start_notified BOOLEAN NOT NULL DEFAULT FALSE,
            created_at TIMESTAMPTZ DEFAULT NOW(),
            updated_at TIMESTAMPTZ DEFAULT NOW()
        );`,
		`CREATE TABLE IF NOT EXISTS party_members (
            party_id INT NOT NULL REFERENCES watch_parties(id) ON DELETE CASCADE,
            user_id INT NOT NULL REFERENCES users(id),
            role TEXT NOT NULL DEFAULT 'participant',
            is_online BOOLEAN NOT NULL DEFAULT FALSE,
            is_banned BOOLEAN NOT NULL DEFAULT FALSE,
            created_at TIMESTAMPTZ DEFAULT NOW(),
            updated_at TIMESTAMPTZ DEFAULT NOW(),
            PRIMARY KEY(party_id, user_id)
        );`,
		`CREATE TABLE IF NOT EXISTS party_messages (
            id SERIAL PRIMARY KEY,
            party_id INT NOT NULL REFERENCES watch_parties(id) ON DELETE CASCADE,
            user_id INT NOT NULL REFERENCES users(id),
            message TEXT NOT NULL,
            is_flagged BOOLEAN NOT NULL DEFAULT FALSE,
            toxicity_score DOUBLE PRECISION NOT NULL DEFAULT 0,
            flag_reason TEXT,
            is_deleted BOOLEAN NOT NULL DEFAULT FALSE,
            created_at TIMESTAMPTZ DEFAULT NOW()
        );`,
		`CREATE TABLE IF NOT EXISTS party_reminders (
            party_id INT NOT NULL REFERENCES watch_parties(id) ON DELETE CASCADE,
            user_id INT NOT NULL REFERENCES users(id),
            created_at TIMESTAMPTZ DEFAULT NOW(),
            PRIMARY KEY(party_id, user_id)
        );`,
		`CREATE TABLE IF NOT EXISTS notifications (
            id SERIAL PRIMARY KEY,
            user_id INT NOT NULL REFERENCES users(id),
            type TEXT NOT NULL,
            title TEXT NOT NULL,
            message TEXT NOT NULL,
            action_url TEXT,
            is_read BOOLEAN NOT NULL DEFAULT FALSE,
            created_at TIMESTAMPTZ DEFAULT NOW()
        );`,
	}

	for _, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return err
		}
	}
	log.Println("database migrations applied")
	return nil
}
