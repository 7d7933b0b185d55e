package config

// SeedAccount is one entry of the fixed account set loaded at startup. PINs are
// plain here and hashed when the directory is populated. MovementDates may be
// shorter than Movements; missing dates are synthesized at seeding time so the
// ledger's length invariant holds from the first request.
type SeedAccount struct {
	Owner         string
	PIN           string
	InterestRate  float64
	Currency      string
	Locale        string
	Movements     []float64
	MovementDates []string // RFC3339, index-aligned with Movements
}

// SeedAccounts returns the demo account set the server boots with.
func SeedAccounts() []SeedAccount {
	return []SeedAccount{
		{
			Owner:        "Jonas Schmedtmann",
			PIN:          "1111",
			InterestRate: 1.2,
			Currency:     "EUR",
			Locale:       "pt-PT",
			Movements:    []float64{200, 450, -400, 3000, -650, -130, 70, 1300},
			MovementDates: []string{
				"2019-11-18T21:31:17.178Z",
				"2019-12-23T07:42:02.383Z",
				"2020-01-28T09:15:04.904Z",
				"2020-04-01T10:17:24.185Z",
				"2020-05-08T14:11:59.604Z",
				"2020-05-27T17:01:17.194Z",
				"2020-07-11T23:36:17.929Z",
				"2020-07-12T10:51:36.790Z",
			},
		},
		{
			Owner:        "Jessica Davis",
			PIN:          "2222",
			InterestRate: 1.5,
			Currency:     "USD",
			Locale:       "en-US",
			Movements:    []float64{5000, 3400, -150, -790, -3210, -1000, 8500, -30},
			MovementDates: []string{
				"2019-11-01T13:15:33.035Z",
				"2019-11-30T09:48:16.867Z",
				"2019-12-25T06:04:23.907Z",
				"2020-01-25T14:18:46.235Z",
				"2020-02-05T16:33:06.386Z",
				"2020-04-10T14:43:26.374Z",
				"2024-01-25T18:49:59.371Z",
				"2024-01-30T12:01:20.894Z",
			},
		},
		{
			Owner:        "Steven Thomas Williams",
			PIN:          "3333",
			InterestRate: 0.7,
			Currency:     "EUR",
			Locale:       "en-GB",
			Movements:    []float64{200, -200, 340, -300, -20, 50, 400, -460},
		},
		{
			Owner:        "Sarah Smith",
			PIN:          "4444",
			InterestRate: 1,
			Currency:     "EUR",
			Locale:       "en-GB",
			Movements:    []float64{430, 1000, 700, 50, 90},
		},
	}
}
