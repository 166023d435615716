// Package partition splits validated rows across the selected counters.
package partition

import (
	"errors"
	"strings"

	"github.com/angelmondragon/countsheet-backend/internal/ingest"
)

var (
	ErrNoUsersSelected = errors.New("no users selected")
	ErrEmptyUpload     = errors.New("upload has no valid rows")
)

// Assignment is a row bound to its counter and its position in the upload.
type Assignment struct {
	Row         ingest.Row
	UploadIndex int
	AssignedTo  string
}

// UserShare summarizes the contiguous block one user received. First and
// Last are nil when the user got no rows.
type UserShare struct {
	Username string `json:"username"`
	Rows     int    `json:"rows"`
	First    *int   `json:"first_index,omitempty"`
	Last     *int   `json:"last_index,omitempty"`
}

// NormalizeUsers trims names, drops blanks and keeps the first occurrence of each.
func NormalizeUsers(users []string) []string {
	seen := make(map[string]struct{}, len(users))
	out := make([]string, 0, len(users))
	for _, u := range users {
		u = strings.TrimSpace(u)
		if u == "" {
			continue
		}
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}

// Assign hands rows out in contiguous blocks of ceil(N/K). The last user
// absorbs anything past K-1 full blocks; when K > N trailing users get nothing.
func Assign(rows []ingest.Row, users []string) ([]Assignment, error) {
	users = NormalizeUsers(users)
	if len(users) == 0 {
		return nil, ErrNoUsersSelected
	}
	if len(rows) == 0 {
		return nil, ErrEmptyUpload
	}

	k := len(users)
	chunk := (len(rows) + k - 1) / k
	out := make([]Assignment, len(rows))
	for i, row := range rows {
		owner := i / chunk
		if owner > k-1 {
			owner = k - 1
		}
		out[i] = Assignment{Row: row, UploadIndex: i, AssignedTo: users[owner]}
	}
	return out, nil
}

// Summarize reports each user's share in selection order, including users
// who received no rows.
func Summarize(assignments []Assignment, users []string) []UserShare {
	users = NormalizeUsers(users)
	shares := make([]UserShare, len(users))
	pos := make(map[string]int, len(users))
	for i, u := range users {
		shares[i] = UserShare{Username: u}
		pos[u] = i
	}
	for _, a := range assignments {
		i, ok := pos[a.AssignedTo]
		if !ok {
			continue
		}
		s := &shares[i]
		idx := a.UploadIndex
		if s.First == nil || idx < *s.First {
			s.First = &idx
		}
		if s.Last == nil || idx > *s.Last {
			last := idx
			s.Last = &last
		}
		s.Rows++
	}
	return shares
}
