package ingest

import (
	"encoding/json"
	"os"
	"time"

	"fintechbi/pkg/errors"
	"fintechbi/pkg/models"
)

// SourceUsers names the users source in errors and stats.
const SourceUsers = "users"

type rawUser struct {
	UserID string `json:"user_id"`
	// SignupDt stays raw so a non-string value drops only its own entry.
	SignupDt json.RawMessage `json:"signup_dt"`
	Segment  string `json:"segment"`
	Region   string `json:"region"`
}

// LoadUsers reads the users JSON array, dropping duplicate user_id entries
// and entries whose signup_dt is not a date.
func LoadUsers(path string) ([]models.User, Stats, error) {
	var stats Stats

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, stats, errors.Wrap(err, errors.ErrCodeFileNotFound, "Source file not found").
				WithContext("path", path).
				WithSuggestions("Run 'fintechbi generate' to create the raw files")
		}
		return nil, stats, errors.Wrap(err, errors.ErrCodeFileOperation, "Failed to read source file").
			WithContext("path", path)
	}

	var raw []rawUser
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, stats, errors.SourceError(path, "Users file is not a JSON array of user objects", err)
	}

	seen := make(map[string]struct{}, len(raw))
	users := make([]models.User, 0, len(raw))
	for _, r := range raw {
		stats.Read++
		if _, dup := seen[r.UserID]; dup {
			stats.Duplicates++
			continue
		}
		seen[r.UserID] = struct{}{}

		signup, ok := parseSignup(r.SignupDt)
		if !ok {
			stats.Malformed++
			continue
		}
		users = append(users, models.User{
			UserID:   r.UserID,
			SignupDt: signup,
			Segment:  r.Segment,
			Region:   r.Region,
		})
	}

	stats.Kept = len(users)
	return users, stats, nil
}

// parseSignup accepts a JSON string holding a date or timestamp.
func parseSignup(raw json.RawMessage) (time.Time, bool) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return time.Time{}, false
	}
	return parseDate(s)
}
