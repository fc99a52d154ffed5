package model

// Account is one record of the reference chart-of-accounts feed (RGS).
// Field names follow the feed.
type Account struct {
	Referentiecode       string `json:"Referentiecode"`
	ReferentieOmslagcode string `json:"ReferentieOmslagcode"`
	Sortering            string `json:"Sortering"`
	Referentienummer     string `json:"Referentienummer"`
	OmschrijvingKort     string `json:"OmschrijvingKort"`
	Omschrijving         string `json:"Omschrijving"`
	DC                   string `json:"DC"`
	Nivo                 int    `json:"Nivo"`
}
