package model

import (
	"context"

	"github.com/cantina-labs/possync/localstore"
)

// AdsManagement is a scheduled promotional banner shown on the customer
// display.
type AdsManagement struct {
	ID        string        `json:"_id"`
	Title     LocalizedName `json:"title"`
	ImageURL  string        `json:"imageUrl"`
	Placement string        `json:"placement"`
	StartsAt  string        `json:"startsAt"`
	EndsAt    string        `json:"endsAt"`
	IsActive  bool          `json:"isActive"`
	Source    string        `json:"source"`
	CreatedAt string        `json:"createdAt"`
	UpdatedAt string        `json:"updatedAt"`
}

func adsManagementToRow(a AdsManagement) localstore.Row {
	return localstore.Row{
		"_id":       a.ID,
		"title":     jsonText(a.Title),
		"imageUrl":  a.ImageURL,
		"placement": a.Placement,
		"startsAt":  a.StartsAt,
		"endsAt":    a.EndsAt,
		"isActive":  boolInt(a.IsActive),
		"source":    a.Source,
		"createdAt": a.CreatedAt,
		"updatedAt": a.UpdatedAt,
	}
}

func adsManagementFromRow(row localstore.Row) (AdsManagement, error) {
	a := AdsManagement{
		ID:        rowString(row, "_id"),
		ImageURL:  rowString(row, "imageUrl"),
		Placement: rowString(row, "placement"),
		StartsAt:  rowString(row, "startsAt"),
		EndsAt:    rowString(row, "endsAt"),
		IsActive:  rowBool(row, "isActive"),
		Source:    rowString(row, "source"),
		CreatedAt: rowString(row, "createdAt"),
		UpdatedAt: rowString(row, "updatedAt"),
	}
	if err := jsonInto(row, "title", &a.Title); err != nil {
		return AdsManagement{}, err
	}
	return a, nil
}

var AdsManagementDescriptor = localstore.EntityDescriptor{
	Table:      "adsManagement",
	PushEntity: "adsManagement",
	Columns: []string{
		"_id", "title", "imageUrl", "placement", "startsAt", "endsAt",
		"isActive", "source", "createdAt", "updatedAt",
	},
	CreateSQL: `CREATE TABLE IF NOT EXISTS adsManagement (
		_id       TEXT PRIMARY KEY,
		title     TEXT,
		imageUrl  TEXT,
		placement TEXT,
		startsAt  TEXT,
		endsAt    TEXT,
		isActive  INTEGER NOT NULL DEFAULT 1,
		source    TEXT NOT NULL DEFAULT 'local',
		createdAt TEXT,
		updatedAt TEXT
	)`,
	Document: func(row localstore.Row) (any, error) { return adsManagementFromRow(row) },
}

type AdsManagementRepository struct {
	*localstore.Repository[AdsManagement]
}

func Ads(s *localstore.Store) *AdsManagementRepository {
	return &AdsManagementRepository{localstore.NewRepository(s, AdsManagementDescriptor, localstore.Codec[AdsManagement]{
		FromRow: adsManagementFromRow,
		ToRow:   adsManagementToRow,
	})}
}

// FindRunning returns the active ads whose schedule covers now.
func (r *AdsManagementRepository) FindRunning(ctx context.Context, now string) ([]AdsManagement, error) {
	return r.Find(ctx, localstore.Query{Where: localstore.Where{
		"isActive": int64(1),
		"startsAt": localstore.Between{From: "", To: now},
		"endsAt":   localstore.Between{From: now, To: "9999-12-31T23:59:59.999Z"},
	}})
}

// AdsReport is a locally accumulated impression/click counter per ad and
// day. Unlike the rest of the catalogue it is keyed by a store-assigned
// numeric id rather than _id.
type AdsReport struct {
	ID          int64  `json:"id"`
	AdRef       string `json:"adRef"`
	Impressions int64  `json:"impressions"`
	Clicks      int64  `json:"clicks"`
	Date        string `json:"date"`
	Source      string `json:"source"`
	CreatedAt   string `json:"createdAt"`
	UpdatedAt   string `json:"updatedAt"`
}

func adsReportToRow(a AdsReport) localstore.Row {
	return localstore.Row{
		"id":          a.ID,
		"adRef":       a.AdRef,
		"impressions": a.Impressions,
		"clicks":      a.Clicks,
		"date":        a.Date,
		"source":      a.Source,
		"createdAt":   a.CreatedAt,
		"updatedAt":   a.UpdatedAt,
	}
}

func adsReportFromRow(row localstore.Row) (AdsReport, error) {
	return AdsReport{
		ID:          rowInt(row, "id"),
		AdRef:       rowString(row, "adRef"),
		Impressions: rowInt(row, "impressions"),
		Clicks:      rowInt(row, "clicks"),
		Date:        rowString(row, "date"),
		Source:      rowString(row, "source"),
		CreatedAt:   rowString(row, "createdAt"),
		UpdatedAt:   rowString(row, "updatedAt"),
	}, nil
}

var AdsReportDescriptor = localstore.EntityDescriptor{
	Table:      "adsReports",
	PushEntity: "adsReport",
	KeyColumn:  "id",
	AutoKey:    true,
	Columns: []string{
		"id", "adRef", "impressions", "clicks", "date", "source",
		"createdAt", "updatedAt",
	},
	CreateSQL: `CREATE TABLE IF NOT EXISTS adsReports (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		adRef       TEXT,
		impressions INTEGER NOT NULL DEFAULT 0,
		clicks      INTEGER NOT NULL DEFAULT 0,
		date        TEXT,
		source      TEXT NOT NULL DEFAULT 'local',
		createdAt   TEXT,
		updatedAt   TEXT
	)`,
	Document: func(row localstore.Row) (any, error) { return adsReportFromRow(row) },
}

type AdsReportRepository struct {
	*localstore.Repository[AdsReport]
}

func AdsReports(s *localstore.Store) *AdsReportRepository {
	return &AdsReportRepository{localstore.NewRepository(s, AdsReportDescriptor, localstore.Codec[AdsReport]{
		FromRow: adsReportFromRow,
		ToRow:   adsReportToRow,
	})}
}

// FindByAd returns the report rows for one ad.
func (r *AdsReportRepository) FindByAd(ctx context.Context, adRef string) ([]AdsReport, error) {
	return r.Find(ctx, localstore.Query{Where: localstore.Where{"adRef": adRef}})
}
