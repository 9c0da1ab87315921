package dataset

import (
	"errors"
	"math"
	"strings"
	"testing"
)

const wideCSV = `id,y1,y2,y3,a1,a2,a3
s1,10,11,13,6.0,7.1,8.2
s2,10,NA,8,6.5,NA,9.0
s3,NA,NA,NA,NA,NA,NA
s4,12,12.5,14,5.9,7.0,8.1
`

func TestReadWide(t *testing.T) {
	tab, err := ReadWide(strings.NewReader(wideCSV), Options{AllowEmpty: true})
	if err != nil {
		t.Fatal(err)
	}
	if tab.Occasions() != 3 {
		t.Errorf("occasions = %d, want 3", tab.Occasions())
	}
	if len(tab.IDs) != 4 || tab.IDs[1] != "s2" {
		t.Errorf("IDs = %v", tab.IDs)
	}
	if tab.Values[0][2] != 13 || tab.Ages[0][2] != 8.2 {
		t.Errorf("subject s1 occasion 3: value %v age %v", tab.Values[0][2], tab.Ages[0][2])
	}
	if !math.IsNaN(tab.Values[1][1]) || !math.IsNaN(tab.Ages[1][1]) {
		t.Error("missing marker not parsed to NaN")
	}
}

func TestSeriesSkipsAllMissingWhenAllowed(t *testing.T) {
	tab, err := ReadWide(strings.NewReader(wideCSV), Options{AllowEmpty: true})
	if err != nil {
		t.Fatal(err)
	}
	series, ids, err := tab.Series()
	if err != nil {
		t.Fatal(err)
	}
	if len(series) != 3 {
		t.Fatalf("kept %d subjects, want 3", len(series))
	}
	for _, id := range ids {
		if id == "s3" {
			t.Error("all-missing subject s3 not dropped")
		}
	}
	if len(series[1]) != 2 {
		t.Errorf("s2 kept %d observations, want 2", len(series[1]))
	}
}

func TestSeriesFailsFastByDefault(t *testing.T) {
	tab, err := ReadWide(strings.NewReader(wideCSV), Options{})
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := tab.Series(); err == nil {
		t.Error("no error for an all-missing subject without AllowEmpty")
	}
}

func TestCompleteCases(t *testing.T) {
	tab, err := ReadWide(strings.NewReader(wideCSV), Options{AllowEmpty: true})
	if err != nil {
		t.Fatal(err)
	}
	rows := tab.CompleteCases()
	if len(rows) != 2 {
		t.Fatalf("complete cases = %d, want 2", len(rows))
	}
	if rows[0][0] != 10 || rows[1][0] != 12 {
		t.Errorf("rows = %v", rows)
	}
}

func TestReadWideCustomMissing(t *testing.T) {
	csv := "id,y1,y2,a1,a2\ns1,10,.,6.0,.\n"
	tab, err := ReadWide(strings.NewReader(csv), Options{Missing: "."})
	if err != nil {
		t.Fatal(err)
	}
	if !math.IsNaN(tab.Values[0][1]) {
		t.Error("custom marker not parsed to NaN")
	}
}

func TestReadWideMalformed(t *testing.T) {
	for name, csv := range map[string]string{
		"odd columns": "id,y1,y2,a1\ns1,1,2,3\n",
		"bad number":  "id,y1,a1\ns1,abc,6.0\n",
		"empty":       "id,y1,a1\n",
	} {
		if _, err := ReadWide(strings.NewReader(csv), Options{}); !errors.Is(err, ErrMalformedTable) {
			t.Errorf("%s: err = %v, want ErrMalformedTable", name, err)
		}
	}
}
