package main

import (
	"database/sql"
	"math"
	"time"

	_ "modernc.org/sqlite"
)

// DB wraps the SQLite connection
type DB struct {
	conn *sql.DB
}

// PilotRow is one account record
type PilotRow struct {
	ID        int64
	Callsign  string
	PassHash  string
	IsGuest   bool
	CreatedAt time.Time
}

// PilotStats is the aggregate stats row for one pilot
type PilotStats struct {
	PilotID   int64
	Kills     int
	Deaths    int
	Matches   int
	BestScore int
	Playtime  float64 // seconds
	XP        int
	Level     int
}

// BoardEntry is one leaderboard row
type BoardEntry struct {
	Rank      int    `json:"rank"`
	Callsign  string `json:"cs"`
	Level     int    `json:"level"`
	XP        int    `json:"xp"`
	Kills     int    `json:"kills"`
	Deaths    int    `json:"deaths"`
	BestScore int    `json:"best"`
}

// OpenDB opens (or creates) the SQLite database at path
func OpenDB(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, err
	}
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

// Close closes the connection
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS pilots (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		callsign TEXT NOT NULL UNIQUE,
		pass_hash TEXT NOT NULL DEFAULT '',
		is_guest INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS pilot_stats (
		pilot_id INTEGER PRIMARY KEY REFERENCES pilots(id),
		kills INTEGER NOT NULL DEFAULT 0,
		deaths INTEGER NOT NULL DEFAULT 0,
		matches INTEGER NOT NULL DEFAULT 0,
		best_score INTEGER NOT NULL DEFAULT 0,
		playtime REAL NOT NULL DEFAULT 0,
		xp INTEGER NOT NULL DEFAULT 0,
		level INTEGER NOT NULL DEFAULT 1
	);

	CREATE TABLE IF NOT EXISTS matches (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		duration REAL NOT NULL DEFAULT 0,
		winner TEXT NOT NULL DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS match_pilots (
		match_id INTEGER NOT NULL REFERENCES matches(id),
		pilot_id INTEGER NOT NULL REFERENCES pilots(id),
		kills INTEGER NOT NULL DEFAULT 0,
		deaths INTEGER NOT NULL DEFAULT 0,
		score INTEGER NOT NULL DEFAULT 0,
		xp_earned INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (match_id, pilot_id)
	);

	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_match_pilots_pilot ON match_pilots(pilot_id);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// CreatePilot creates an account and its stats row, returning the id
func (db *DB) CreatePilot(callsign, passHash string) (int64, error) {
	res, err := db.conn.Exec(
		"INSERT INTO pilots (callsign, pass_hash) VALUES (?, ?)",
		callsign, passHash,
	)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	_, err = db.conn.Exec("INSERT INTO pilot_stats (pilot_id) VALUES (?)", id)
	return id, err
}

// CreateGuest creates a guest account (no password)
func (db *DB) CreateGuest(callsign string) (int64, error) {
	res, err := db.conn.Exec(
		"INSERT INTO pilots (callsign, is_guest) VALUES (?, 1)",
		callsign,
	)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	_, err = db.conn.Exec("INSERT INTO pilot_stats (pilot_id) VALUES (?)", id)
	return id, err
}

// GetPilotByCallsign returns a pilot, or nil when not found
func (db *DB) GetPilotByCallsign(callsign string) (*PilotRow, error) {
	row := db.conn.QueryRow(
		"SELECT id, callsign, pass_hash, is_guest, created_at FROM pilots WHERE callsign = ?",
		callsign,
	)
	return scanPilot(row)
}

// GetPilotByID returns a pilot, or nil when not found
func (db *DB) GetPilotByID(id int64) (*PilotRow, error) {
	row := db.conn.QueryRow(
		"SELECT id, callsign, pass_hash, is_guest, created_at FROM pilots WHERE id = ?",
		id,
	)
	return scanPilot(row)
}

func scanPilot(row *sql.Row) (*PilotRow, error) {
	p := &PilotRow{}
	err := row.Scan(&p.ID, &p.Callsign, &p.PassHash, &p.IsGuest, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return p, err
}

// CallsignExists checks whether a callsign is taken
func (db *DB) CallsignExists(callsign string) (bool, error) {
	var count int
	err := db.conn.QueryRow("SELECT COUNT(*) FROM pilots WHERE callsign = ?", callsign).Scan(&count)
	return count > 0, err
}

// GetStats returns a pilot's stats, or nil when not found
func (db *DB) GetStats(pilotID int64) (*PilotStats, error) {
	row := db.conn.QueryRow(
		`SELECT pilot_id, kills, deaths, matches, best_score, playtime, xp, level
		 FROM pilot_stats WHERE pilot_id = ?`,
		pilotID,
	)
	s := &PilotStats{}
	err := row.Scan(&s.PilotID, &s.Kills, &s.Deaths, &s.Matches, &s.BestScore, &s.Playtime, &s.XP, &s.Level)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return s, err
}

// MatchXP is the experience earned for one match
func MatchXP(kills, score int) int {
	return 20 + kills*10 + score*2
}

// LevelForXP maps accumulated XP to a level. Reaching level n costs
// 75*n*(n-1) total XP (150 for level 2, 450 for level 3, ...), so each
// step costs 150 more than the last. Capped at 100.
func LevelForXP(xp int) int {
	if xp < 0 {
		xp = 0
	}
	level := int(math.Floor((1 + math.Sqrt(1+4*float64(xp)/75.0)) / 2))
	if level < 1 {
		level = 1
	}
	if level > 100 {
		level = 100
	}
	return level
}

// ApplyMatchResult folds one match into a pilot's aggregate stats and
// returns the new XP total and level
func (db *DB) ApplyMatchResult(pilotID int64, kills, deaths, score int, duration float64, xpEarned int) (int, int, error) {
	_, err := db.conn.Exec(`
		UPDATE pilot_stats SET
			kills = kills + ?,
			deaths = deaths + ?,
			matches = matches + 1,
			best_score = MAX(best_score, ?),
			playtime = playtime + ?,
			xp = xp + ?
		WHERE pilot_id = ?`,
		kills, deaths, score, duration, xpEarned, pilotID,
	)
	if err != nil {
		return 0, 0, err
	}

	var totalXP int
	if err := db.conn.QueryRow("SELECT xp FROM pilot_stats WHERE pilot_id = ?", pilotID).Scan(&totalXP); err != nil {
		return 0, 0, err
	}
	level := LevelForXP(totalXP)
	_, err = db.conn.Exec("UPDATE pilot_stats SET level = ? WHERE pilot_id = ?", level, pilotID)
	return totalXP, level, err
}

// Leaderboard returns top non-guest pilots ordered by a whitelisted column
func (db *DB) Leaderboard(orderBy string, limit int) ([]BoardEntry, error) {
	validCols := map[string]string{
		"kills": "s.kills", "level": "s.level", "xp": "s.xp",
		"best": "s.best_score",
		"kd":   "CASE WHEN s.deaths > 0 THEN CAST(s.kills AS REAL)/s.deaths ELSE s.kills END",
	}
	col, ok := validCols[orderBy]
	if !ok {
		col = "s.xp"
	}

	query := `SELECT p.callsign, s.level, s.xp, s.kills, s.deaths, s.best_score
		FROM pilot_stats s JOIN pilots p ON p.id = s.pilot_id
		WHERE p.is_guest = 0
		ORDER BY ` + col + ` DESC LIMIT ?`

	rows, err := db.conn.Query(query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []BoardEntry
	rank := 1
	for rows.Next() {
		var e BoardEntry
		if err := rows.Scan(&e.Callsign, &e.Level, &e.XP, &e.Kills, &e.Deaths, &e.BestScore); err != nil {
			return nil, err
		}
		e.Rank = rank
		rank++
		result = append(result, e)
	}
	return result, rows.Err()
}

// RecordMatch inserts a completed match and returns its id
func (db *DB) RecordMatch(duration float64, winner string) (int64, error) {
	res, err := db.conn.Exec(
		"INSERT INTO matches (duration, winner) VALUES (?, ?)",
		duration, winner,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// RecordMatchPilot inserts one pilot's per-match line
func (db *DB) RecordMatchPilot(matchID, pilotID int64, kills, deaths, score, xpEarned int) error {
	_, err := db.conn.Exec(
		`INSERT INTO match_pilots (match_id, pilot_id, kills, deaths, score, xp_earned)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		matchID, pilotID, kills, deaths, score, xpEarned,
	)
	return err
}

// GetSetting returns a settings value, or "" when absent
func (db *DB) GetSetting(key string) string {
	var v string
	err := db.conn.QueryRow("SELECT value FROM settings WHERE key = ?", key).Scan(&v)
	if err != nil {
		return ""
	}
	return v
}

// SetSetting upserts a settings value
func (db *DB) SetSetting(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value,
	)
	return err
}
