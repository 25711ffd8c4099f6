package store

const createTableSQL = `
CREATE TABLE IF NOT EXISTS scans (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    scan_uuid       TEXT NOT NULL,
    hostname        TEXT NOT NULL,
    username        TEXT NOT NULL DEFAULT '',
    system_serial   TEXT NOT NULL DEFAULT '',
    header          TEXT NOT NULL DEFAULT '',
    record_count    INTEGER NOT NULL DEFAULT 0,
    scanned_at      TEXT NOT NULL,
    stored_at       TEXT NOT NULL,
    records_json    TEXT NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_scans_scan_uuid ON scans(scan_uuid);
CREATE INDEX IF NOT EXISTS idx_scans_hostname ON scans(hostname);
CREATE INDEX IF NOT EXISTS idx_scans_system_serial ON scans(system_serial);
CREATE INDEX IF NOT EXISTS idx_scans_scanned_at ON scans(scanned_at);
`
