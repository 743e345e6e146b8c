package database

import (
	"context"
	"database/sql"
	"errors"

	"musiccatalog/pkg/models"
)

// CreateArtist inserts a new artist and returns it.
func (q *Queries) CreateArtist(ctx context.Context, name string) (*models.Artist, error) {
	result, err := q.exec(ctx, "INSERT INTO artists (name) VALUES (?)", name)
	if err != nil {
		return nil, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &models.Artist{ID: id, Name: name}, nil
}

// ListArtists returns all artists ordered by ID.
func (q *Queries) ListArtists(ctx context.Context) ([]models.Artist, error) {
	rows, err := q.query(ctx, "SELECT id, name FROM artists ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	artists := []models.Artist{}
	for rows.Next() {
		var a models.Artist
		if err := rows.Scan(&a.ID, &a.Name); err != nil {
			return nil, err
		}
		artists = append(artists, a)
	}
	return artists, rows.Err()
}

// CreateGenre inserts a new genre; names are unique.
func (q *Queries) CreateGenre(ctx context.Context, name string) (*models.Genre, error) {
	result, err := q.exec(ctx, "INSERT INTO genres (name) VALUES (?)", name)
	if err != nil {
		return nil, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &models.Genre{ID: id, Name: name}, nil
}

// GetGenreByName returns the genre with name or ErrNotFound.
func (q *Queries) GetGenreByName(ctx context.Context, name string) (*models.Genre, error) {
	var g models.Genre
	err := q.queryRow(ctx, "SELECT id, name FROM genres WHERE name = ?", name).Scan(&g.ID, &g.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &g, nil
}

// ListGenres returns all genres ordered by ID.
func (q *Queries) ListGenres(ctx context.Context) ([]models.Genre, error) {
	rows, err := q.query(ctx, "SELECT id, name FROM genres ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	genres := []models.Genre{}
	for rows.Next() {
		var g models.Genre
		if err := rows.Scan(&g.ID, &g.Name); err != nil {
			return nil, err
		}
		genres = append(genres, g)
	}
	return genres, rows.Err()
}

// CreateUser inserts a new user and returns it with its ID.
func (q *Queries) CreateUser(ctx context.Context, u models.User) (*models.User, error) {
	result, err := q.exec(ctx, `
		INSERT INTO users (email, display_name, role)
		VALUES (?, ?, ?)`, u.Email, u.DisplayName, string(u.Role))
	if err != nil {
		return nil, err
	}
	u.ID, err = result.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUser returns a user by ID or ErrNotFound.
func (q *Queries) GetUser(ctx context.Context, id int64) (*models.User, error) {
	var u models.User
	var role string
	err := q.queryRow(ctx, "SELECT id, email, display_name, role FROM users WHERE id = ?", id).
		Scan(&u.ID, &u.Email, &u.DisplayName, &role)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	u.Role = models.Role(role)
	return &u, nil
}

// GetUserByEmail returns a user by email or ErrNotFound.
func (q *Queries) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	var role string
	err := q.queryRow(ctx, "SELECT id, email, display_name, role FROM users WHERE email = ?", email).
		Scan(&u.ID, &u.Email, &u.DisplayName, &role)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	u.Role = models.Role(role)
	return &u, nil
}

// ListUsers returns all users ordered by ID.
func (q *Queries) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := q.query(ctx, "SELECT id, email, display_name, role FROM users ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		var u models.User
		var role string
		if err := rows.Scan(&u.ID, &u.Email, &u.DisplayName, &role); err != nil {
			return nil, err
		}
		u.Role = models.Role(role)
		users = append(users, u)
	}
	return users, rows.Err()
}
