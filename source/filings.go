package source

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"cloud.google.com/go/civil"
	"github.com/goccy/go-json"
	"github.com/guregu/null/v6"
	"github.com/posix4e/btc-mnav-rainbow/model"
)

type filingJSON struct {
	Date         civil.Date `json:"date"`
	ClassAShares null.Float `json:"classAShares"`
	ClassBShares null.Float `json:"classBShares"`
	ClassBtoA    null.Float `json:"classBtoA"`
	Debt         null.Float `json:"debt"`
	Preferred    null.Float `json:"preferred"`
	BtcHoldings  null.Float `json:"btcHoldings"`
}

// ReadFilingsJSON 读取定期报告披露的股本等稀疏数据
func ReadFilingsJSON(path string) ([]model.FilingRecord, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	filings, err := ParseFilingsJSON(file)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return filings, nil
}

func ParseFilingsJSON(r io.Reader) ([]model.FilingRecord, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return []model.FilingRecord{}, nil
	}

	var raw []filingJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	filings := make([]model.FilingRecord, 0, len(raw))
	for i, f := range raw {
		if !f.Date.IsValid() {
			return nil, fmt.Errorf("filing %d: invalid date %s", i, f.Date)
		}
		filings = append(filings, model.FilingRecord{
			Date:         f.Date.In(time.UTC),
			ClassAShares: f.ClassAShares,
			ClassBShares: f.ClassBShares,
			ClassBtoA:    f.ClassBtoA,
			Debt:         f.Debt,
			Preferred:    f.Preferred,
			BtcHoldings:  f.BtcHoldings,
		})
	}

	sort.SliceStable(filings, func(i, j int) bool { return filings[i].Date.Before(filings[j].Date) })
	return filings, nil
}
