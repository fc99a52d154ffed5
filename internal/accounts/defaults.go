package accounts

import "github.com/cleared-dev/kasboek/internal/model"

// UnmappedCode is the sentinel account every new allocation is booked to.
const UnmappedCode = "Unmapped"

// PostingLevel is the hierarchy depth at which accounts accept postings.
const PostingLevel = 4

// Well-known ledger accounts used by the engine.
const (
	RevenueAccrualsCode = "BSchOvaVob" // vooruitontvangen opbrengsten
	ExpenseAccrualsCode = "BVorOvaVbe" // vooruitbetaalde kosten

	VATPayHighCode     = "BSchBtwAfh"
	VATPayLowCode      = "BSchBtwAfl"
	VATClaimCode       = "BSchBtwVoo"
	VATPayableCode     = "BSchBtwAtb"
	VATReceivableCode  = "BVorBtwTvo"
	VATPrivateUseCode  = "WBedAlkPrb"
	VATDifferencesCode = "WBedAlkBev"

	bankPrefix         = "BLim"
	balanceSheetPrefix = "B"
	revenuePrefix      = "WOmz"
	profitLossPrefix   = "W"
)

func unmappedAccount() model.Account {
	return model.Account{
		Referentiecode:   UnmappedCode,
		Sortering:        "ZZZ",
		OmschrijvingKort: "Unmapped",
		Omschrijving:     "Not yet allocated to a ledger account",
		Nivo:             1,
	}
}

// DefaultScheme returns a compact RGS-style chart that covers every
// well-known account. It is used by `kasboek init` when no scheme is
// configured.
func DefaultScheme() []model.Account {
	return []model.Account{
		{Referentiecode: "B", Sortering: "1", OmschrijvingKort: "Balans", Omschrijving: "BALANS", Nivo: 1},
		{Referentiecode: "W", Sortering: "2", OmschrijvingKort: "Winst en verlies", Omschrijving: "WINST- EN VERLIESREKENING", Nivo: 1},

		{Referentiecode: "BLim", Sortering: "1.01", OmschrijvingKort: "Liquide middelen", Omschrijving: "Liquide middelen", DC: "D", Nivo: 2},
		{Referentiecode: "BVor", Sortering: "1.02", OmschrijvingKort: "Vorderingen", Omschrijving: "Vorderingen", DC: "D", Nivo: 2},
		{Referentiecode: "BSch", Sortering: "1.03", OmschrijvingKort: "Kortlopende schulden", Omschrijving: "Kortlopende schulden", DC: "C", Nivo: 2},
		{Referentiecode: "WOmz", Sortering: "2.01", OmschrijvingKort: "Netto-omzet", Omschrijving: "Netto-omzet", DC: "C", Nivo: 2},
		{Referentiecode: "WBed", Sortering: "2.02", OmschrijvingKort: "Bedrijfslasten", Omschrijving: "Overige bedrijfskosten", DC: "D", Nivo: 2},

		{Referentiecode: "BLimBan", Sortering: "1.01.01", OmschrijvingKort: "Banken", Omschrijving: "Banken", DC: "D", Nivo: 3},
		{Referentiecode: "BVorOva", Sortering: "1.02.01", OmschrijvingKort: "Overlopende activa", Omschrijving: "Overlopende activa", DC: "D", Nivo: 3},
		{Referentiecode: "BVorBtw", Sortering: "1.02.02", OmschrijvingKort: "Vorderingen BTW", Omschrijving: "Vorderingen omzetbelasting", DC: "D", Nivo: 3},
		{Referentiecode: "BSchOva", Sortering: "1.03.01", OmschrijvingKort: "Overlopende passiva", Omschrijving: "Overlopende passiva", DC: "C", Nivo: 3},
		{Referentiecode: "BSchBtw", Sortering: "1.03.02", OmschrijvingKort: "Te betalen BTW", Omschrijving: "Te betalen omzetbelasting", DC: "C", Nivo: 3},
		{Referentiecode: "WOmzNop", Sortering: "2.01.01", OmschrijvingKort: "Opbrengsten", Omschrijving: "Netto-omzet opbrengsten", DC: "C", Nivo: 3},
		{Referentiecode: "WBedAlk", Sortering: "2.02.01", OmschrijvingKort: "Algemene kosten", Omschrijving: "Algemene kosten", DC: "D", Nivo: 3},
		{Referentiecode: "WBedKan", Sortering: "2.02.02", OmschrijvingKort: "Kantoorkosten", Omschrijving: "Kantoorkosten", DC: "D", Nivo: 3},

		{Referentiecode: "BLimBanRba", Sortering: "1.01.01.01", OmschrijvingKort: "Rekening-courant bank", Omschrijving: "Rekening-courant bank groep 1", DC: "D", Nivo: 4},
		{Referentiecode: ExpenseAccrualsCode, Sortering: "1.02.01.01", OmschrijvingKort: "Vooruitbetaalde kosten", Omschrijving: "Vooruitbetaalde kosten", DC: "D", Nivo: 4},
		{Referentiecode: VATReceivableCode, Sortering: "1.02.02.01", OmschrijvingKort: "Te vorderen BTW", Omschrijving: "Te vorderen omzetbelasting", DC: "D", Nivo: 4},
		{Referentiecode: RevenueAccrualsCode, Sortering: "1.03.01.01", OmschrijvingKort: "Vooruitontvangen opbrengsten", Omschrijving: "Vooruitontvangen opbrengsten", DC: "C", Nivo: 4},
		{Referentiecode: VATPayHighCode, Sortering: "1.03.02.01", OmschrijvingKort: "BTW hoog", Omschrijving: "Af te dragen BTW hoog tarief", DC: "C", Nivo: 4},
		{Referentiecode: VATPayLowCode, Sortering: "1.03.02.02", OmschrijvingKort: "BTW laag", Omschrijving: "Af te dragen BTW laag tarief", DC: "C", Nivo: 4},
		{Referentiecode: VATClaimCode, Sortering: "1.03.02.03", OmschrijvingKort: "Voorbelasting", Omschrijving: "Voorbelasting", DC: "D", Nivo: 4},
		{Referentiecode: VATPayableCode, Sortering: "1.03.02.04", OmschrijvingKort: "Af te dragen BTW", Omschrijving: "Af te dragen omzetbelasting", DC: "C", Nivo: 4},
		{Referentiecode: "WOmzNopOmz", Sortering: "2.01.01.01", OmschrijvingKort: "Omzet", Omschrijving: "Omzet diensten", DC: "C", Nivo: 4},
		{Referentiecode: VATPrivateUseCode, Sortering: "2.02.01.01", OmschrijvingKort: "Privégebruik", Omschrijving: "Correctie privégebruik omzetbelasting", DC: "D", Nivo: 4},
		{Referentiecode: VATDifferencesCode, Sortering: "2.02.01.02", OmschrijvingKort: "Betalingsverschillen", Omschrijving: "Betalingsverschillen", DC: "D", Nivo: 4},
		{Referentiecode: "WBedKanKan", Sortering: "2.02.02.01", OmschrijvingKort: "Kantoorbenodigdheden", Omschrijving: "Kantoorbenodigdheden", DC: "D", Nivo: 4},
		{Referentiecode: "WBedKanSof", Sortering: "2.02.02.02", OmschrijvingKort: "Software", Omschrijving: "Software en licenties", DC: "D", Nivo: 4},
	}
}
