package domain

// CurrencyUSD is the settlement currency for appointment prices.
const CurrencyUSD = "USD"
