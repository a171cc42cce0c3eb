package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/posix4e/btc-mnav-rainbow/config"
	"github.com/posix4e/btc-mnav-rainbow/model"
)

// Status 打印各表行数, 最新日期与每条序列最近的模型
func Status(cfg *config.Config, w io.Writer) error {
	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TABLE\tROWS\tLATEST")
	for _, meta := range model.AllTables() {
		n, err := db.CountRows(meta.TableName)
		if err != nil {
			return err
		}
		latest := "-"
		if meta.HasColumn("date") && n > 0 {
			d, err := db.GetLatestDate(meta.TableName, "date")
			if err != nil {
				return err
			}
			latest = d.Format("2006-01-02")
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\n", meta.TableName, n, latest)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	models, err := db.QueryLatestModels()
	if err != nil {
		return err
	}
	if len(models) == 0 {
		return nil
	}

	fmt.Fprintln(w)
	tw = tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SERIES\tRUN\tFITTED\tPOINTS\tA\tB\tC")
	for _, m := range models {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%.4f\t%.2f\t%.4f\n",
			m.Series, m.RunID, m.FittedAt.Format("2006-01-02 15:04"), m.Points, m.A, m.B, m.C)
	}
	return tw.Flush()
}
