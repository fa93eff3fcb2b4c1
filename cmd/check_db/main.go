// Command check_db prints row counts and referential problems in the
// agrocampo schema. It talks to PostgreSQL directly so it also works when
// the API cannot start
package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"

	_ "github.com/lib/pq"
	"github.com/xelth-com/agrocampo/internal/config"
)

var tables = []string{
	"roles", "usuarios", "trabajadores", "supervisor_trabajador",
	"cultivos", "lotes", "labores_tipos", "labores_agricolas", "alertas",
}

// Each check counts rows that violate an expectation the API relies on
var checks = []struct {
	name  string
	query string
}{
	{"labor events with unknown worker", `
		SELECT COUNT(*) FROM labores_agricolas la
		LEFT JOIN trabajadores t ON t.id_trabajador = la.id_trabajador
		WHERE t.id_trabajador IS NULL`},
	{"labor events with unknown plot", `
		SELECT COUNT(*) FROM labores_agricolas la
		LEFT JOIN lotes l ON l.id_lote = la.id_lote
		WHERE l.id_lote IS NULL`},
	{"labor events without edit deadline", `
		SELECT COUNT(*) FROM labores_agricolas WHERE hora_limite_edicion IS NULL`},
	{"assignments to non-supervisors", `
		SELECT COUNT(*) FROM supervisor_trabajador st
		JOIN usuarios u ON u.id_usuario = st.id_supervisor
		WHERE u.id_rol <> 2`},
	{"workers linked to non-operators", `
		SELECT COUNT(*) FROM trabajadores t
		JOIN usuarios u ON u.id_usuario = t.id_usuario
		WHERE u.id_rol <> 3`},
	{"users with unknown role", `
		SELECT COUNT(*) FROM usuarios WHERE id_rol NOT IN (1, 2, 3)`},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		cfg.Database.Host, cfg.Database.Port, cfg.Database.Username, cfg.Database.Password, cfg.Database.Database)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		log.Fatalf("cannot reach %s:%s/%s: %v", cfg.Database.Host, cfg.Database.Port, cfg.Database.Database, err)
	}

	fmt.Println("Table\tRows")
	fmt.Println("------------------------------")
	for _, table := range tables {
		var n int64
		if err := db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n); err != nil {
			fmt.Printf("%s\tmissing (%v)\n", table, err)
			continue
		}
		fmt.Printf("%s\t%d\n", table, n)
	}

	problems := 0
	fmt.Println("\nIntegrity")
	fmt.Println("------------------------------")
	for _, c := range checks {
		var n int64
		if err := db.QueryRow(c.query).Scan(&n); err != nil {
			fmt.Printf("%s: error: %v\n", c.name, err)
			problems++
			continue
		}
		status := "ok"
		if n > 0 {
			status = fmt.Sprintf("%d rows", n)
			problems++
		}
		fmt.Printf("%s: %s\n", c.name, status)
	}

	if problems > 0 {
		os.Exit(1)
	}
}
