package universe

// Static tier inputs. Tier membership is intentionally code-reviewed data:
// changing it is a diffable event, not a runtime surprise.

// tier1SP500Core is the curated large-cap core list.
var tier1SP500Core = []string{
	"AAPL", "MSFT", "GOOGL", "AMZN", "NVDA", "META", "TSLA", "BRK.B", "UNH", "JNJ",
	"XOM", "JPM", "V", "PG", "MA", "HD", "CVX", "ABBV", "MRK", "LLY",
	"AVGO", "PEP", "KO", "COST", "WMT", "TMO", "MCD", "CSCO", "ACN", "ABT",
	"CRM", "ADBE", "LIN", "DHR", "TXN", "VZ", "NKE", "ORCL", "PM", "WFC",
	"DIS", "NEE", "BMY", "RTX", "UPS", "AMD", "QCOM", "HON", "INTC", "COP",
	"LOW", "UNP", "IBM", "SPGI", "GE", "CAT", "BA", "AMGN", "PFE", "SBUX",
	"INTU", "GS", "ELV", "DE", "PLD", "MS", "BLK", "MDT", "AXP", "GILD",
	"ADI", "TJX", "LMT", "C", "SYK", "VRTX", "AMT", "CVS", "SCHW", "MO",
	"ZTS", "CB", "MMC", "CI", "PGR", "SO", "TMUS", "FI", "DUK", "BDX",
	"EOG", "BSX", "CL", "ITW", "APD", "CSX", "CME", "MU", "NOC", "FCX",
}

// tier2Nasdaq100 is the static Nasdaq-100 membership list. Overlap with
// Tier1 is removed at build time, not here.
var tier2Nasdaq100 = []string{
	"AAPL", "MSFT", "GOOGL", "GOOG", "AMZN", "NVDA", "META", "TSLA", "AVGO", "PEP",
	"COST", "CSCO", "ADBE", "TXN", "CMCSA", "NFLX", "QCOM", "AMD", "INTC", "HON",
	"AMGN", "INTU", "SBUX", "GILD", "ADI", "MDLZ", "ISRG", "ADP", "REGN", "VRTX",
	"PYPL", "BKNG", "LRCX", "MU", "PANW", "SNPS", "CDNS", "KLAC", "ASML", "MELI",
	"CHTR", "MAR", "ABNB", "ORLY", "MNST", "CTAS", "NXPI", "FTNT", "WDAY", "ADSK",
	"PCAR", "KDP", "MRVL", "DXCM", "AEP", "ROST", "KHC", "EXC", "IDXX", "AZN",
	"CRWD", "BIIB", "MCHP", "CPRT", "PAYX", "ODFL", "FAST", "EA", "CSGP", "XEL",
	"VRSK", "CTSH", "DLTR", "GEHC", "ILMN", "WBD", "BKR", "ANSS", "TEAM", "DDOG",
	"FANG", "ALGN", "EBAY", "ZS", "SIRI", "ENPH", "JD", "LCID", "ZM", "RIVN",
}

// tier3ETFWhitelist are ETFs liquid enough for covered-call writing.
var tier3ETFWhitelist = []string{
	"SPY", "QQQ", "IWM", "DIA", "XLE", "XLF", "XLK", "XLV", "XLI", "XLP",
	"XLU", "XLY", "XLB", "XLRE", "XLC", "GLD", "SLV", "USO", "TLT", "IEF",
	"HYG", "LQD", "EEM", "EFA", "FXI", "EWZ", "ARKK", "SMH", "XBI", "KRE",
	"GDX", "XOP", "ITB", "XRT", "TAN",
}
