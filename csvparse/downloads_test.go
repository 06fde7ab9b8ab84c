package csvparse

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/gfz-dataservices/grobi/store"
)

const downloadsHeader = "DOI,Filename,Download_URL,Description,Format,Size_Bytes\n"

func TestParseDownloads(t *testing.T) {
	path := writeCSV(t, downloadsHeader+
		"10.1594/GFZ.SDDB.1004,data.csv,https://download.gfz.de/data.csv,Download data,text/csv,62207\n"+
		"  10.1594/GFZ.SDDB.1004  ,  readme.txt  ,  https://example.org/readme.txt  ,  Read me  ,  text/plain  ,  1024  \n"+
		",,,,,\n"+
		"10.5880/GFZ.1.1.2021.001,empty.bin,,,,\n")

	res, err := ParseDownloads(path)
	if err != nil {
		t.Fatalf("ParseDownloads: %v", err)
	}
	want := []store.File{
		{DOI: "10.1594/GFZ.SDDB.1004", Filename: "data.csv", URL: "https://download.gfz.de/data.csv", Description: "Download data", Format: "text/csv", Size: 62207},
		{DOI: "10.1594/GFZ.SDDB.1004", Filename: "readme.txt", URL: "https://example.org/readme.txt", Description: "Read me", Format: "text/plain", Size: 1024},
		{DOI: "10.5880/GFZ.1.1.2021.001", Filename: "empty.bin"},
	}
	if diff := cmp.Diff(want, Files(res)); diff != "" {
		t.Errorf("files (-want +got):\n%s", diff)
	}
	if res.Len() != 2 {
		t.Errorf("Len() = %d, want 2", res.Len())
	}
	if len(res.Warnings) != 0 {
		t.Errorf("warnings = %v, want none", res.Warnings)
	}
}

func TestParseDownloadsSkipsBadRows(t *testing.T) {
	tests := []struct {
		name     string
		row      string
		wantText string
	}{
		{"invalid doi", "invalid-doi,data.csv,https://example.org/data.csv,Data,text/csv,1000", "DOI-Format"},
		{"missing filename", "10.1594/GFZ.SDDB.1004,,https://example.org/data.csv,Data,text/csv,1000", "Dateiname fehlt"},
		{"bad url", "10.1594/GFZ.SDDB.1004,data.csv,ftp://example.org/data.csv,Data,text/csv,1000", "Download-URL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeCSV(t, downloadsHeader+tt.row+"\n"+
				"10.5880/GFZ.1,valid.csv,https://example.org/valid.csv,Valid,text/csv,2000\n")
			res, err := ParseDownloads(path)
			if err != nil {
				t.Fatalf("ParseDownloads: %v", err)
			}
			files := Files(res)
			if len(files) != 1 || files[0].Filename != "valid.csv" {
				t.Errorf("files = %+v, want only valid.csv", files)
			}
			if len(res.Warnings) != 1 || !strings.Contains(res.Warnings[0], tt.wantText) {
				t.Errorf("warnings = %v, want one containing %q", res.Warnings, tt.wantText)
			}
		})
	}
}

func TestParseDownloadsSize(t *testing.T) {
	path := writeCSV(t, downloadsHeader+
		"10.1594/GFZ.SDDB.1004,a.csv,,,,not_a_number\n"+
		"10.1594/GFZ.SDDB.1004,b.csv,,,,-500\n"+
		"10.1594/GFZ.SDDB.1004,c.csv,,,,\n")

	res, err := ParseDownloads(path)
	if err != nil {
		t.Fatalf("ParseDownloads: %v", err)
	}
	for _, f := range Files(res) {
		if f.Size != 0 {
			t.Errorf("%s: Size = %d, want 0", f.Filename, f.Size)
		}
	}
	if len(res.Warnings) != 2 {
		t.Errorf("warnings = %v, want 2", res.Warnings)
	}
}

func TestParseDownloadsDuplicateFileKeepsLast(t *testing.T) {
	path := writeCSV(t, downloadsHeader+
		"10.5880/GFZ.1,data.csv,https://example.org/old.csv,,,\n"+
		"10.5880/GFZ.1,data.csv,https://example.org/new.csv,,,\n")

	res, err := ParseDownloads(path)
	if err != nil {
		t.Fatalf("ParseDownloads: %v", err)
	}
	files := Files(res)
	if len(files) != 1 || files[0].URL != "https://example.org/new.csv" {
		t.Errorf("files = %+v, want the second row only", files)
	}
	if len(res.Warnings) != 1 {
		t.Errorf("warnings = %v, want 1", res.Warnings)
	}
}

func TestParseDownloadsStructuralErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    Kind
	}{
		{"missing headers", "DOI,Filename,URL\n10.5880/GFZ.1,data.csv,https://example.org\n", KindFormat},
		{"wrong header case", "doi,file_name,url,desc,format,size\n10.5880/GFZ.1,data.csv,https://example.org,d,csv,1\n", KindFormat},
		{"header only", downloadsHeader, KindFormat},
		{"not utf-8", downloadsHeader + "10.5880/GFZ.1,data.csv,,Beschreibung\x80\x81,,1\n", KindEncoding},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDownloads(writeCSV(t, tt.content))
			if !IsKind(err, tt.want) {
				t.Errorf("err = %v, want kind %v", err, tt.want)
			}
		})
	}
}
