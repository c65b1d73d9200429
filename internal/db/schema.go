package db

// currentSchema is the complete schema at CurrentVersion, used to bootstrap
// an empty database. Keep it in sync with the incremental steps.
const currentSchema = `
CREATE TABLE IF NOT EXISTS db_version (
	id INTEGER PRIMARY KEY CHECK (id = 1),
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS roles (
	name TEXT PRIMARY KEY
);

CREATE TABLE IF NOT EXISTS users (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	role TEXT NOT NULL,
	code TEXT NOT NULL,
	is_active INTEGER NOT NULL DEFAULT 1,
	created_at INTEGER NOT NULL DEFAULT 0,
	updated_at INTEGER NOT NULL DEFAULT 0,
	icon TEXT,
	email TEXT,
	phone TEXT
);

CREATE TABLE IF NOT EXISTS wallets (
	owner INTEGER PRIMARY KEY,
	assets INTEGER NOT NULL DEFAULT 0 CHECK (assets >= 0),
	credit INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS ledgers (
	user_id INTEGER PRIMARY KEY,
	created_at INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS ledger_entries (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL,
	transfer_id TEXT NOT NULL DEFAULT '',
	reason TEXT NOT NULL DEFAULT '',
	amount INTEGER NOT NULL,
	counterparty INTEGER,
	timestamp INTEGER NOT NULL,
	balance INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_ledger_entries_user ON ledger_entries (user_id, timestamp);

CREATE TABLE IF NOT EXISTS event_types (
	name TEXT NOT NULL,
	owner INTEGER,
	icon TEXT NOT NULL DEFAULT '',
	iconColor TEXT NOT NULL DEFAULT '',
	availability INTEGER NOT NULL DEFAULT 0,
	weight INTEGER NOT NULL DEFAULT 1,
	created_at INTEGER NOT NULL DEFAULT 0,
	expiration_date INTEGER,
	PRIMARY KEY (name, owner)
);

CREATE TABLE IF NOT EXISTS events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	eventType TEXT NOT NULL,
	note TEXT,
	photoPath TEXT,
	created_by INTEGER NOT NULL,
	created_at INTEGER NOT NULL DEFAULT 0,
	is_verified INTEGER NOT NULL DEFAULT 0,
	verified_at INTEGER,
	verified_by INTEGER,
	owner INTEGER
);

CREATE TABLE IF NOT EXISTS products (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	images TEXT NOT NULL DEFAULT '',
	price INTEGER NOT NULL DEFAULT 0,
	quantity INTEGER NOT NULL DEFAULT 0,
	creator INTEGER NOT NULL,
	online INTEGER NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL DEFAULT 0,
	updated_at INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS purchases (
	order_number INTEGER PRIMARY KEY AUTOINCREMENT,
	product_id INTEGER NOT NULL,
	owner INTEGER NOT NULL,
	seller INTEGER,
	name TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	images TEXT NOT NULL DEFAULT '',
	price INTEGER NOT NULL,
	quantity INTEGER NOT NULL,
	createdAt INTEGER NOT NULL,
	fulfilledAt INTEGER,
	fulfilledBy INTEGER,
	status TEXT NOT NULL DEFAULT 'pending',
	canceledAt INTEGER,
	canceledBy INTEGER
);

CREATE INDEX IF NOT EXISTS idx_purchases_owner ON purchases (owner);
CREATE INDEX IF NOT EXISTS idx_purchases_seller ON purchases (seller);

CREATE TABLE IF NOT EXISTS productImages (
	id INTEGER PRIMARY KEY,
	referred INTEGER NOT NULL DEFAULT 0
);
`

// bootstrapTables lists the tables a leftover "<name>_old" copy may be
// folded into during bootstrap.
var bootstrapTables = []string{
	"users",
	"wallets",
	"event_types",
	"events",
	"products",
	"purchases",
	"productImages",
	"ledgers",
	"ledger_entries",
}
