package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/username/secid/backend/src/logger"
	"github.com/username/secid/backend/src/models"
)

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// RunQuery executes one or more semicolon-separated statements in order on a
// single connection. Every statement that yields columns contributes a table;
// RowsAffected counts the rows changed by the whole input. The store is flushed
// afterwards whatever the statements were, since reads and writes cannot be
// told apart by their text. Backend failures come back as *models.StoreError
// wrapping the backend's message.
func (s *Store) RunQuery(ctx context.Context, sqlText string) (*models.QueryResult, error) {
	statements := splitStatements(sqlText)
	if len(statements) == 0 {
		return nil, &models.ValidationError{Field: "query", Msg: "query required"}
	}

	result, runErr := s.runStatements(ctx, statements)
	flushErr := s.flush(ctx, "query")
	if runErr != nil {
		return nil, &models.StoreError{Op: "query", Err: runErr}
	}
	logger.L.Info("Ad-hoc query executed",
		"statements", len(statements),
		"tables", len(result.Tables),
		"rowsAffected", result.RowsAffected)
	return result, flushErr
}

func (s *Store) runStatements(ctx context.Context, statements []string) (*models.QueryResult, error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	before, err := totalChanges(ctx, conn)
	if err != nil {
		return nil, err
	}
	result := &models.QueryResult{Tables: []models.QueryTable{}}
	for _, statement := range statements {
		table, err := queryTable(ctx, conn, statement)
		if err != nil {
			return nil, err
		}
		if len(table.Columns) > 0 {
			result.Tables = append(result.Tables, *table)
		}
	}
	after, err := totalChanges(ctx, conn)
	if err != nil {
		return nil, err
	}
	result.RowsAffected = after - before
	return result, nil
}

func totalChanges(ctx context.Context, q queryer) (int64, error) {
	rows, err := q.QueryContext(ctx, "SELECT total_changes()")
	if err != nil {
		return 0, fmt.Errorf("failed to read change counter: %w", err)
	}
	defer rows.Close()
	var n int64
	if rows.Next() {
		if err := rows.Scan(&n); err != nil {
			return 0, err
		}
	}
	return n, rows.Err()
}

// queryTable runs statement and collects its rows. Statements without result
// columns still run to completion.
func queryTable(ctx context.Context, q queryer, statement string) (*models.QueryTable, error) {
	rows, err := q.QueryContext(ctx, statement)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	table := &models.QueryTable{Columns: cols, Rows: [][]any{}}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		table.Rows = append(table.Rows, values)
	}
	return table, rows.Err()
}

// splitStatements breaks sqlText on semicolons that sit outside string
// literals, quoted identifiers, comments and CREATE TRIGGER bodies. Pieces
// holding only whitespace and comments are dropped.
func splitStatements(sqlText string) []string {
	var (
		out     []string
		start   int
		hasCode bool
		leading []string
		trigger bool
		depth   int
		word    strings.Builder
	)
	endWord := func() {
		if word.Len() == 0 {
			return
		}
		w := strings.ToUpper(word.String())
		word.Reset()
		if len(leading) < 4 {
			leading = append(leading, w)
			if leading[0] == "CREATE" && w == "TRIGGER" {
				trigger = true
			}
		}
		if trigger {
			switch w {
			case "BEGIN", "CASE":
				depth++
			case "END":
				if depth > 0 {
					depth--
				}
			}
		}
	}
	endStatement := func(i int) {
		if hasCode {
			out = append(out, strings.TrimSpace(sqlText[start:i]))
		}
		start, hasCode, leading, trigger, depth = i+1, false, nil, false, 0
	}

	n := len(sqlText)
	for i := 0; i < n; i++ {
		c := sqlText[i]
		switch {
		case c == '-' && i+1 < n && sqlText[i+1] == '-':
			endWord()
			nl := strings.IndexByte(sqlText[i:], '\n')
			if nl < 0 {
				i = n
			} else {
				i += nl
			}
		case c == '/' && i+1 < n && sqlText[i+1] == '*':
			endWord()
			closing := strings.Index(sqlText[i+2:], "*/")
			if closing < 0 {
				i = n
			} else {
				i += closing + 3
			}
		case c == '\'' || c == '"' || c == '`' || c == '[':
			endWord()
			hasCode = true
			closer := c
			if c == '[' {
				closer = ']'
			}
			j := i + 1
			for j < n {
				if sqlText[j] == closer {
					if closer != ']' && j+1 < n && sqlText[j+1] == closer {
						j += 2
						continue
					}
					break
				}
				j++
			}
			i = j
		case c == ';':
			endWord()
			if trigger && depth > 0 {
				continue
			}
			endStatement(i)
		case c == '_' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z':
			word.WriteByte(c)
			hasCode = true
		default:
			endWord()
			if c != ' ' && c != '\t' && c != '\n' && c != '\r' && c != '\f' && c != '\v' {
				hasCode = true
			}
		}
	}
	endWord()
	if start < n {
		endStatement(n)
	}
	return out
}
