package toolservice

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// SQLiteServer serves the database tools over stdio: list_tables,
// describe_table, read_query and write_query against one SQLite file.
type SQLiteServer struct {
	// Path is the database file. ":memory:" works for throwaway use.
	Path string

	db *sql.DB
}

// TableInput names a table for describe_table.
type TableInput struct {
	Table string `json:"table" jsonschema:"table name"`
}

// QueryInput carries the SQL for read_query and write_query.
type QueryInput struct {
	Query string `json:"query" jsonschema:"SQL statement"`
}

// TablesOutput is the list_tables result.
type TablesOutput struct {
	Tables []string `json:"tables"`
}

// ColumnInfo describes one column of a table.
type ColumnInfo struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	NotNull bool   `json:"not_null"`
	IsPK    bool   `json:"primary_key"`
}

// SchemaOutput is the describe_table result.
type SchemaOutput struct {
	Table   string       `json:"table"`
	Columns []ColumnInfo `json:"columns"`
}

// RowsOutput is the read_query result.
type RowsOutput struct {
	Rows []map[string]any `json:"rows"`
}

// WriteOutput is the write_query result.
type WriteOutput struct {
	RowsAffected int64 `json:"rows_affected"`
}

// Open connects to the database. Run calls it implicitly; tests call it
// directly.
func (s *SQLiteServer) Open() error {
	if s.db != nil {
		return nil
	}
	db, err := sql.Open("sqlite3", s.Path)
	if err != nil {
		return fmt.Errorf("toolservice: sqlite open %s: %w", s.Path, err)
	}
	s.db = db
	return nil
}

// Close releases the database handle.
func (s *SQLiteServer) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// Run serves the database service on stdio until ctx is canceled.
func (s *SQLiteServer) Run(ctx context.Context) error {
	if err := s.Open(); err != nil {
		return err
	}
	defer s.Close()

	server := mcp.NewServer(&mcp.Implementation{Name: "sqlite", Version: serverVersion}, nil)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_tables",
		Description: "Lists the tables in the database",
	}, s.listTables)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "describe_table",
		Description: "Describes the columns of a table",
	}, s.describeTable)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "read_query",
		Description: "Runs a read-only SELECT query",
	}, s.readQuery)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "write_query",
		Description: "Runs an INSERT, UPDATE or DELETE statement",
	}, s.writeQuery)
	return server.Run(ctx, &mcp.StdioTransport{})
}

func (s *SQLiteServer) listTables(ctx context.Context, req *mcp.CallToolRequest, in struct{}) (*mcp.CallToolResult, TablesOutput, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`)
	if err != nil {
		return nil, TablesOutput{}, fmt.Errorf("toolservice: list tables: %w", err)
	}
	defer rows.Close()

	var out TablesOutput
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, TablesOutput{}, fmt.Errorf("toolservice: list tables: %w", err)
		}
		out.Tables = append(out.Tables, name)
	}
	return nil, out, rows.Err()
}

func (s *SQLiteServer) describeTable(ctx context.Context, req *mcp.CallToolRequest, in TableInput) (*mcp.CallToolResult, SchemaOutput, error) {
	if !identifier.MatchString(in.Table) {
		return toolError(fmt.Sprintf("invalid table name: %q", in.Table)), SchemaOutput{}, nil
	}
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", in.Table))
	if err != nil {
		return toolError(err.Error()), SchemaOutput{}, nil
	}
	defer rows.Close()

	out := SchemaOutput{Table: in.Table}
	for rows.Next() {
		var (
			cid     int
			name    string
			ctype   string
			notNull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notNull, &dflt, &pk); err != nil {
			return nil, SchemaOutput{}, fmt.Errorf("toolservice: describe %s: %w", in.Table, err)
		}
		out.Columns = append(out.Columns, ColumnInfo{
			Name:    name,
			Type:    ctype,
			NotNull: notNull != 0,
			IsPK:    pk != 0,
		})
	}
	if len(out.Columns) == 0 {
		return toolError(fmt.Sprintf("no such table: %s", in.Table)), SchemaOutput{}, nil
	}
	return nil, out, rows.Err()
}

func (s *SQLiteServer) readQuery(ctx context.Context, req *mcp.CallToolRequest, in QueryInput) (*mcp.CallToolResult, RowsOutput, error) {
	if !isReadStatement(in.Query) {
		return toolError("read_query accepts only SELECT statements"), RowsOutput{}, nil
	}
	rows, err := s.db.QueryContext(ctx, in.Query)
	if err != nil {
		return toolError(err.Error()), RowsOutput{}, nil
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, RowsOutput{}, fmt.Errorf("toolservice: read query: %w", err)
	}
	var out RowsOutput
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, RowsOutput{}, fmt.Errorf("toolservice: read query: %w", err)
		}
		row := make(map[string]any, len(cols))
		for i, col := range cols {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
			} else {
				row[col] = values[i]
			}
		}
		out.Rows = append(out.Rows, row)
	}
	return nil, out, rows.Err()
}

func (s *SQLiteServer) writeQuery(ctx context.Context, req *mcp.CallToolRequest, in QueryInput) (*mcp.CallToolResult, WriteOutput, error) {
	if !isWriteStatement(in.Query) {
		return toolError("write_query accepts only INSERT, UPDATE or DELETE statements"), WriteOutput{}, nil
	}
	res, err := s.db.ExecContext(ctx, in.Query)
	if err != nil {
		return toolError(err.Error()), WriteOutput{}, nil
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, WriteOutput{}, fmt.Errorf("toolservice: write query: %w", err)
	}
	return nil, WriteOutput{RowsAffected: affected}, nil
}

func isReadStatement(q string) bool {
	head := statementHead(q)
	return head == "SELECT" || head == "WITH"
}

func isWriteStatement(q string) bool {
	switch statementHead(q) {
	case "INSERT", "UPDATE", "DELETE":
		return true
	}
	return false
}

func statementHead(q string) string {
	fields := strings.Fields(strings.TrimSpace(q))
	if len(fields) == 0 {
		return ""
	}
	return strings.ToUpper(fields[0])
}
