// Command opteryx-smoke runs a statement against the data service and
// renders the result, as a quick end-to-end check of the driver.
//
// Connection settings come from a .env file in the working directory or
// from OPTERYX_* environment variables.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/viper"

	"github.com/opteryx-data/opteryx-go/client"
	"github.com/opteryx-data/opteryx-go/core"
)

func main() {
	query := flag.String("query", "SELECT 1", "statement to execute")
	flag.Parse()

	if err := run(*query); err != nil {
		fmt.Fprintf(os.Stderr, "opteryx-smoke: %s\n", err)
		os.Exit(1)
	}
}

func run(query string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	session, err := client.Connect(cfg)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer session.Close()

	cursor, err := session.Cursor()
	if err != nil {
		return err
	}
	defer cursor.Close()

	if err := cursor.Execute(context.Background(), query); err != nil {
		return err
	}

	rows, err := cursor.FetchAll()
	if err != nil {
		return err
	}

	if err := render(os.Stdout, cursor.Description(), rows); err != nil {
		return err
	}
	fmt.Printf("\n%d row(s)\n", cursor.RowCount())

	return nil
}

// envKeys are the settings read from .env / OPTERYX_* environment variables.
var envKeys = []string{"host", "port", "username", "secret", "token", "database", "secure", "timeout"}

func loadConfig() (*client.Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil {
		var pathErr *fs.PathError
		if !errors.As(err, &pathErr) {
			return nil, err
		}
		// no .env file, environment variables only
	}

	v.SetEnvPrefix("opteryx")
	v.AutomaticEnv()

	// the .env file carries prefixed keys; fold them onto the plain ones
	for _, key := range envKeys {
		if v.IsSet("opteryx_"+key) && !v.IsSet(key) {
			v.Set(key, v.Get("opteryx_"+key))
		}
	}

	v.SetDefault("host", "localhost")
	v.SetDefault("port", 8000)
	v.SetDefault("timeout", "30s")

	return &client.Config{
		Host:     v.GetString("host"),
		Port:     v.GetInt("port"),
		Username: v.GetString("username"),
		Secret:   v.GetString("secret"),
		Token:    v.GetString("token"),
		Database: v.GetString("database"),
		Secure:   v.GetBool("secure"),
		Timeout:  v.GetDuration("timeout"),
	}, nil
}

func render(w io.Writer, header core.Header, rows []core.Row) error {
	var tableHeader table.Row
	for _, name := range header {
		tableHeader = append(tableHeader, name)
	}

	t := table.NewWriter()
	t.AppendHeader(tableHeader)
	for _, row := range rows {
		t.AppendRow(table.Row(row))
	}
	t.SetStyle(table.StyleLight)
	t.Style().Format = table.FormatOptions{
		Footer: text.FormatDefault,
		Header: text.FormatDefault,
		Row:    text.FormatDefault,
	}

	_, err := fmt.Fprint(w, t.Render())
	return err
}
