package airlock

import (
	"database/sql"
	"strings"
	"time"
)

const itemColumns = "id, asset_id, source_path, original_name, status, trust_level, confidence, payload_json, error_message, user_id, created_at, updated_at, last_heartbeat"

func scanItem(scanner interface{ Scan(dest ...any) error }) (*Item, error) {
	var (
		id           int64
		assetID      sql.NullString
		sourcePath   string
		originalName sql.NullString
		statusStr    string
		trustLevel   sql.NullString
		confidence   sql.NullFloat64
		payloadJSON  sql.NullString
		errorMessage sql.NullString
		userID       sql.NullString
		createdRaw   sql.NullString
		updatedRaw   sql.NullString
		heartbeatRaw sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&assetID,
		&sourcePath,
		&originalName,
		&statusStr,
		&trustLevel,
		&confidence,
		&payloadJSON,
		&errorMessage,
		&userID,
		&createdRaw,
		&updatedRaw,
		&heartbeatRaw,
	); err != nil {
		return nil, err
	}

	item := &Item{
		ID:           id,
		AssetID:      assetID.String,
		SourcePath:   sourcePath,
		OriginalName: originalName.String,
		Status:       Status(statusStr),
		TrustLevel:   TrustLevel(trustLevel.String),
		Confidence:   confidence.Float64,
		PayloadJSON:  payloadJSON.String,
		ErrorMessage: errorMessage.String,
		UserID:       userID.String,
		CreatedAt:    parseStoredTime(createdRaw.String),
		UpdatedAt:    parseStoredTime(updatedRaw.String),
	}
	if heartbeatRaw.Valid && heartbeatRaw.String != "" {
		hb := parseStoredTime(heartbeatRaw.String)
		item.LastHeartbeat = &hb
	}
	return item, nil
}

func parseStoredTime(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t
	}
	return time.Time{}
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

func makePlaceholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
