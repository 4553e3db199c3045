package snapshotbuilder

// schema creates the five snapshot tables. Column order matches the directory.*Columns slices.
// Child tables carry no foreign keys: upstream data is copied as-is and the reader drops
// whatever it cannot assemble.
var schema = []string{
	`CREATE TABLE provider (
		contract      TEXT PRIMARY KEY,
		name          TEXT,
		network       TEXT,
		type          TEXT,
		phone_number  TEXT,
		status        TEXT,
		website       TEXT,
		google_url    TEXT,
		rating        REAL,
		total_ratings INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE location (
		contract    TEXT NOT NULL,
		lat         REAL,
		lng         REAL,
		address     TEXT,
		postal_code TEXT,
		country     TEXT,
		state       TEXT,
		city        TEXT
	)`,
	`CREATE TABLE specialty (
		contract   TEXT NOT NULL,
		specialty  TEXT,
		is_primary INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE category (
		contract TEXT NOT NULL,
		category TEXT
	)`,
	`CREATE TABLE review (
		contract         TEXT NOT NULL,
		author_name      TEXT,
		author_photo_url TEXT,
		rating           REAL,
		text             TEXT,
		time             INTEGER
	)`,
	`CREATE INDEX idx_provider_status ON provider (status)`,
	`CREATE INDEX idx_location_contract ON location (contract)`,
	`CREATE INDEX idx_location_lat_lng ON location (lat, lng)`,
	`CREATE INDEX idx_specialty_contract ON specialty (contract)`,
	`CREATE INDEX idx_category_contract ON category (contract)`,
	`CREATE INDEX idx_review_contract ON review (contract)`,
}
