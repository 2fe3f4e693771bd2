package registry

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

func scanAsset(scanner interface{ Scan(dest ...any) error }) (*Asset, error) {
	var (
		asset         Asset
		mediaCategory string
		clipType      string
		techJSON      sql.NullString
		jobStatus     string
		lastStage     string
		createdRaw    string
		updatedRaw    string
	)
	if err := scanner.Scan(
		&asset.ID,
		&asset.Filename,
		&asset.Checksum,
		&asset.SizeBytes,
		&asset.MimeType,
		&asset.RelativePath,
		&asset.DurationMs,
		&mediaCategory,
		&clipType,
		&techJSON,
		&jobStatus,
		&asset.Job.JobID,
		&lastStage,
		&asset.SyncOffsetFrames,
		&asset.AnalysisContent,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}
	asset.MediaCategory = MediaCategory(mediaCategory)
	asset.ClipType = ClipType(clipType)
	asset.Job.Status = JobStatus(jobStatus)
	asset.LastStage = Stage(lastStage)

	if techJSON.Valid && techJSON.String != "" {
		var tech TechMetadata
		if err := json.Unmarshal([]byte(techJSON.String), &tech); err != nil {
			return nil, fmt.Errorf("decode tech metadata for %s: %w", asset.ID, err)
		}
		asset.Tech = &tech
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		asset.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		asset.UpdatedAt = updated
	}
	return &asset, nil
}

func formatTime(value time.Time) string {
	return value.UTC().Format(time.RFC3339Nano)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}
