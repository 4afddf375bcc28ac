package storage

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
	timeLayout      = "2006-01-02 15:04:05"
)

// generateID generates a new UUID
func generateID() string {
	return uuid.New().String()
}

// isVerified reports whether status records a contract whose source the
// explorer holds, which is when verified_at gets stamped.
func isVerified(status string) bool {
	return status == "verified" || status == "already_verified"
}

// encodeCursor turns a row offset into an opaque cursor
func encodeCursor(offset int) string {
	return base64.RawURLEncoding.EncodeToString([]byte(strconv.Itoa(offset)))
}

func decodeCursor(cursor string) (int, error) {
	if cursor == "" {
		return 0, nil
	}
	b, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return 0, ErrInvalidCursor
	}
	n, err := strconv.Atoi(string(b))
	if err != nil || n < 0 {
		return 0, ErrInvalidCursor
	}
	return n, nil
}

func pageSize(p PaginationParams) int {
	switch {
	case p.Limit <= 0:
		return defaultPageSize
	case p.Limit > maxPageSize:
		return maxPageSize
	}
	return p.Limit
}

// whereClause renders filter as a WHERE clause; placeholder returns the
// driver's bind marker for the n-th argument (1-based).
func whereClause(filter DeploymentFilter, placeholder func(n int) string) (string, []any) {
	var conds []string
	var args []any
	add := func(col string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf("%s = %s", col, placeholder(len(args))))
	}

	if filter.ChainID != 0 {
		add("chain_id", filter.ChainID)
	}
	if filter.Network != "" {
		add("network", filter.Network)
	}
	if filter.ContractName != "" {
		add("contract_name", filter.ContractName)
	}
	if filter.VerificationStatus != "" {
		add("verification_status", filter.VerificationStatus)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// paginate trims the extra lookahead row and fills in the next cursor
func paginate[T any](rows []T, limit, offset int) *PaginatedResult[T] {
	res := &PaginatedResult[T]{Data: rows}
	if len(rows) > limit {
		res.Data = rows[:limit]
		res.HasMore = true
		res.NextCursor = encodeCursor(offset + limit)
	}
	return res
}
