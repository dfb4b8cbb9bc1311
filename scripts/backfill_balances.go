// Audit script: verifies that every cached users.coins value equals the
// signed sum of that user's ledger entries, and optionally repairs drift.
//
//	go run scripts/backfill_balances.go [-fix]
package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

func main() {
	fix := flag.Bool("fix", false, "rewrite cached balances from the ledger")
	flag.Parse()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Build connection string
	dbHost := os.Getenv("DB_HOST")
	dbPort := os.Getenv("DB_PORT")
	dbUser := os.Getenv("DB_USER")
	dbPassword := os.Getenv("DB_PASSWORD")
	dbName := os.Getenv("DB_NAME")

	connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		dbHost, dbPort, dbUser, dbPassword, dbName)

	// Connect to database
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}

	log.Println("Connected to database successfully")

	rows, err := db.Query(`
		SELECT u.id, u.username, u.coins, COALESCE(SUM(t.amount), 0) AS ledger_sum
		FROM users u
		LEFT JOIN coin_transactions t ON t.to_user_id = u.id
		GROUP BY u.id, u.username, u.coins
		HAVING u.coins <> COALESCE(SUM(t.amount), 0)
		ORDER BY u.id`)
	if err != nil {
		log.Fatalf("Failed to query drift: %v", err)
	}
	defer rows.Close()

	drifted := 0
	for rows.Next() {
		var id int64
		var username, coins, ledgerSum string
		if err := rows.Scan(&id, &username, &coins, &ledgerSum); err != nil {
			log.Fatalf("Failed to scan row: %v", err)
		}
		drifted++
		log.Printf("DRIFT user %d (%s): cached=%s ledger=%s", id, username, coins, ledgerSum)
	}
	if err := rows.Err(); err != nil {
		log.Fatalf("Row iteration failed: %v", err)
	}

	if drifted == 0 {
		log.Println("No drift: every cached balance matches its ledger sum")
		return
	}

	if !*fix {
		log.Printf("%d drifted balance(s) found, re-run with -fix to repair", drifted)
		return
	}

	res, err := db.Exec(`
		UPDATE users u
		SET coins = sub.ledger_sum
		FROM (
			SELECT u2.id, COALESCE(SUM(t.amount), 0) AS ledger_sum
			FROM users u2
			LEFT JOIN coin_transactions t ON t.to_user_id = u2.id
			GROUP BY u2.id
		) sub
		WHERE u.id = sub.id AND u.coins <> sub.ledger_sum`)
	if err != nil {
		log.Fatalf("Failed to repair balances: %v", err)
	}

	affected, _ := res.RowsAffected()
	log.Printf("Repaired %d balance(s) from the ledger", affected)
}
