package domain

import "github.com/trexinity/another/internal/docstore"

// Store paths of the storefront schema.
const (
	MoviesPath = "movies"
	UsersPath  = "users"
)

func TitlePath(id string) string { return docstore.Join(MoviesPath, id) }

func UserPath(uid string) string { return docstore.Join(UsersPath, uid) }

func FavoritesPath(uid string) string { return docstore.Join(UsersPath, uid, "favorites") }

func WatchlistPath(uid string) string { return docstore.Join(UsersPath, uid, "watchlist") }

func WatchProgressPath(uid string) string { return docstore.Join(UsersPath, uid, "watchProgress") }

func WatchHistoryPath(uid string) string { return docstore.Join(UsersPath, uid, "watchHistory") }
