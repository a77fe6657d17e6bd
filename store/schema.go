// Copyright 2026 The Metrolink Authors
// SPDX-License-Identifier: Apache-2.0

package store

// databaseSchema creates every table the coordinator persists. Names
// and columns are a compatibility surface: existing deployments carry
// databases created by earlier builds, so changes here must stay
// additive.
const databaseSchema = `
	CREATE TABLE IF NOT EXISTS users (
		urn               TEXT PRIMARY KEY,
		name              TEXT,
		age               INTEGER,
		registration_date TEXT,
		active            BOOLEAN,
		pin_hash          TEXT
	);

	CREATE TABLE IF NOT EXISTS groups (
		group_id      INTEGER PRIMARY KEY AUTOINCREMENT,
		group_name    TEXT UNIQUE,
		leader_urn    TEXT,
		creation_date TEXT,
		active        BOOLEAN,
		FOREIGN KEY (leader_urn) REFERENCES users(urn)
	);

	CREATE TABLE IF NOT EXISTS group_members (
		group_id   INTEGER,
		member_urn TEXT,
		join_date  TEXT,
		active     BOOLEAN,
		PRIMARY KEY (group_id, member_urn),
		FOREIGN KEY (group_id) REFERENCES groups(group_id) ON DELETE CASCADE,
		FOREIGN KEY (member_urn) REFERENCES users(urn)
	);

	CREATE TABLE IF NOT EXISTS vehicles (
		uri             TEXT PRIMARY KEY,
		type            INTEGER,
		capacity        INTEGER,
		available_seats INTEGER,
		route           TEXT,
		active          BOOLEAN,
		last_update     TEXT
	);

	CREATE TABLE IF NOT EXISTS tickets (
		ticket_id     TEXT PRIMARY KEY,
		user_urn      TEXT,
		type          INTEGER,
		vehicle_type  INTEGER,
		route         TEXT,
		price         REAL,
		discount      REAL,
		purchase_date TEXT,
		seat_number   TEXT,
		used          BOOLEAN,
		FOREIGN KEY (user_urn) REFERENCES users(urn)
	);

	CREATE TABLE IF NOT EXISTS payments (
		transaction_id TEXT PRIMARY KEY,
		ticket_id      TEXT,
		amount         REAL,
		payment_method TEXT,
		payment_date   TEXT,
		successful     BOOLEAN,
		FOREIGN KEY (ticket_id) REFERENCES tickets(ticket_id)
	);

	CREATE TABLE IF NOT EXISTS price_list (
		id                  INTEGER PRIMARY KEY AUTOINCREMENT,
		vehicle_type        INTEGER,
		ticket_type         INTEGER,
		base_price          REAL,
		distance_multiplier REAL,
		time_multiplier     REAL,
		last_update         TEXT
	);

	CREATE TABLE IF NOT EXISTS active_connections (
		connection_id  TEXT PRIMARY KEY,
		client_address TEXT,
		client_port    INTEGER,
		user_urn       TEXT,
		connect_time   TEXT,
		last_activity  TEXT,
		authenticated  BOOLEAN,
		FOREIGN KEY (user_urn) REFERENCES users(urn)
	);

	CREATE TABLE IF NOT EXISTS vehicle_samples (
		sample_id     INTEGER PRIMARY KEY AUTOINCREMENT,
		taken_at      TEXT,
		vehicle_count INTEGER,
		snapshot      BLOB
	);
`
