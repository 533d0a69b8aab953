package domain

import (
	"fmt"
	"strings"
)

// Field length caps applied to the metadata snapshot written to the vector
// store. The snapshot is immutable after ingestion; rebuilds re-apply them.
const (
	EmbedTextLimit = 500 // description/requirements prefix used for embedding
	DocumentLimit  = 1000

	metaTitleLimit    = 500
	metaCompanyLimit  = 200
	metaLocationLimit = 200
	metaJobTypeLimit  = 100
	metaCategoryLimit = 200
	metaURLLimit      = 500
	metaLongLimit     = 1000
	metaDateLimit     = 50
)

// Display sentinels for absent metadata fields.
const (
	SentinelUnknown = "Unknown"
	SentinelNA      = "N/A"
)

// EmbeddingText renders a job into the deterministic, pipe-delimited text that
// is embedded. Fields are emitted in a fixed priority order and absent fields
// are omitted entirely so the vector reflects only real content.
func EmbeddingText(j JobPosting) string {
	parts := make([]string, 0, 7)
	if j.Title != "" {
		parts = append(parts, "Title: "+j.Title)
	}
	if j.Company != "" {
		parts = append(parts, "Company: "+j.Company)
	}
	if j.Location != "" {
		parts = append(parts, "Location: "+j.Location)
	}
	if j.JobType != "" {
		parts = append(parts, "Type: "+j.JobType)
	}
	if j.Category != "" {
		parts = append(parts, "Category: "+j.Category)
	}
	if j.Description != "" {
		parts = append(parts, "Description: "+truncateRunes(j.Description, EmbedTextLimit))
	}
	if j.Requirements != "" {
		parts = append(parts, "Requirements: "+truncateRunes(j.Requirements, EmbedTextLimit))
	}
	return strings.Join(parts, " | ")
}

// DocumentText renders the short reference document stored next to the vector.
func DocumentText(j JobPosting) string {
	return truncateRunes(strings.TrimSpace(j.Title+" "+j.Company+" "+j.Description), DocumentLimit)
}

// MetadataSnapshot builds the flat metadata record mirroring the posting.
// Values are plain strings (possibly empty) plus the integer job id; the
// vector store adapter enforces primitive types on top of this.
func MetadataSnapshot(j JobPosting) map[string]any {
	return map[string]any{
		"job_id":       j.ID,
		"title":        truncateRunes(j.Title, metaTitleLimit),
		"company":      truncateRunes(j.Company, metaCompanyLimit),
		"location":     truncateRunes(j.Location, metaLocationLimit),
		"job_type":     truncateRunes(j.JobType, metaJobTypeLimit),
		"category":     truncateRunes(j.Category, metaCategoryLimit),
		"url":          truncateRunes(j.URL, metaURLLimit),
		"description":  truncateRunes(j.Description, metaLongLimit),
		"requirements": truncateRunes(j.Requirements, metaLongLimit),
		"posted_date":  truncateRunes(j.PostedDate, metaDateLimit),
	}
}

// JobFromPayload reassembles a posting from a stored metadata payload,
// substituting display sentinels for absent fields so callers never see
// empty identity fields. Sentinel substitution is centralized here.
func JobFromPayload(id int64, payload map[string]any) JobPosting {
	return JobPosting{
		ID:           payloadID(id, payload),
		Title:        payloadString(payload, "title", SentinelUnknown),
		Company:      payloadString(payload, "company", SentinelUnknown),
		Location:     payloadString(payload, "location", SentinelUnknown),
		JobType:      payloadString(payload, "job_type", SentinelNA),
		Category:     payloadString(payload, "category", SentinelNA),
		Description:  payloadString(payload, "description", SentinelNA),
		Requirements: payloadString(payload, "requirements", SentinelNA),
		URL:          payloadString(payload, "url", ""),
		PostedDate:   payloadString(payload, "posted_date", SentinelUnknown),
	}
}

func payloadID(fallback int64, payload map[string]any) int64 {
	switch v := payload["job_id"].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	default:
		return fallback
	}
}

func payloadString(payload map[string]any, key, sentinel string) string {
	v, ok := payload[key]
	if !ok || v == nil {
		return sentinel
	}
	s, ok := v.(string)
	if !ok {
		s = fmt.Sprintf("%v", v)
	}
	if strings.TrimSpace(s) == "" {
		return sentinel
	}
	return s
}

// truncateRunes cuts s to at most n runes, never splitting a multi-byte
// character.
func truncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
