package main

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

func resetFinalizationMain(cmd *cobra.Command, _ []string) error {
	evaluatorID, err := cmd.Flags().GetString("evaluator")
	if err != nil {
		return err
	}
	cfg, err := getConfig(cmd)
	if err != nil {
		return err
	}
	svc, dbh, err := openService(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer dbh.Close()

	n, err := svc.ResetFinalization(cmd.Context(), evaluatorID)
	if err != nil {
		return err
	}
	scope := evaluatorID
	if scope == "" {
		scope = "all evaluators"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "reopened %d (%s)\n", n, scope)
	return nil
}

func exportScoresMain(cmd *cobra.Command, _ []string) (err error) {
	out, err := cmd.Flags().GetString("out")
	if err != nil {
		return err
	}
	cfg, err := getConfig(cmd)
	if err != nil {
		return err
	}
	svc, dbh, err := openService(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer dbh.Close()

	tbl, err := svc.Export(cmd.Context())
	if err != nil {
		return err
	}

	w := bufio.NewWriter(cmd.OutOrStdout())
	if out != "-" {
		var f *os.File
		if f, err = os.Create(out); err != nil {
			return err
		}
		defer func() {
			if cerr := f.Close(); err == nil {
				err = cerr
			}
		}()
		w = bufio.NewWriter(f)
	}
	if err := tbl.WriteCSV(w); err != nil {
		return err
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if out != "-" {
		slog.Info("scores exported", "path", out, "projects", len(tbl.Rows))
	}
	return nil
}

func listBackupsMain(cmd *cobra.Command, _ []string) error {
	cfg, err := getConfig(cmd)
	if err != nil {
		return err
	}
	svc, dbh, err := openService(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer dbh.Close()

	sets, err := svc.Backups(cmd.Context())
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, set := range sets {
		for _, k := range set.Files {
			fmt.Fprintln(out, k)
		}
	}
	return nil
}

func getBackupMain(cmd *cobra.Command, args []string) error {
	cfg, err := getConfig(cmd)
	if err != nil {
		return err
	}
	svc, dbh, err := openService(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer dbh.Close()

	b, err := svc.BackupFile(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(b)
	return err
}
