package handlers

import (
	"database/sql"
	"sync"

	_ "modernc.org/sqlite"
)

// searchIndex is a lazily-opened, in-memory SQLite index of resource
// names. handleSearch rebuilds it from the adapter's resource list on
// every request and then answers the substring query against it.
type searchIndex struct {
	mu sync.Mutex
	db *sql.DB
}

var globalSearchIndex = &searchIndex{}

func (s *searchIndex) rebuild(names []struct{ ID, Name, Kind string }) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		s.db.Close()
	}
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return err
	}
	if _, err := db.Exec(`CREATE TABLE resources (id TEXT, name TEXT, kind TEXT)`); err != nil {
		db.Close()
		return err
	}
	stmt, err := db.Prepare(`INSERT INTO resources (id, name, kind) VALUES (?, ?, ?)`)
	if err != nil {
		db.Close()
		return err
	}
	for _, n := range names {
		if _, err := stmt.Exec(n.ID, n.Name, n.Kind); err != nil {
			stmt.Close()
			db.Close()
			return err
		}
	}
	stmt.Close()
	s.db = db
	return nil
}

func (s *searchIndex) query(substr string) ([]map[string]interface{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil, nil
	}
	rows, err := s.db.Query(
		`SELECT id, name, kind FROM resources WHERE name LIKE ?`,
		"%"+substr+"%",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []map[string]interface{}
	for rows.Next() {
		var id, name, kind string
		if err := rows.Scan(&id, &name, &kind); err != nil {
			return nil, err
		}
		results = append(results, map[string]interface{}{"id": id, "name": name, "kind": kind})
	}
	return results, rows.Err()
}

func handleSearch(id int, params map[string]interface{}, state *State) Result {
	if state.Adapter == nil {
		return Err("no capture is open")
	}
	query, ok := paramString(params, "query")
	if !ok {
		return InvalidParams("search requires query")
	}

	resources, err := state.Adapter.Resources()
	if err != nil {
		return Err("%s", err.Error())
	}
	rows := make([]struct{ ID, Name, Kind string }, 0, len(resources))
	for _, r := range resources {
		rows = append(rows, struct{ ID, Name, Kind string }{r.ID, r.Name, r.Type})
	}
	if err := globalSearchIndex.rebuild(rows); err != nil {
		return Err("%s", err.Error())
	}

	matches, err := globalSearchIndex.query(query)
	if err != nil {
		return Err("%s", err.Error())
	}
	return Ok(map[string]interface{}{"matches": matches})
}
