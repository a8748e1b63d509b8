package models

// UserRecord is one row of the user table. Columns are positional in the
// file; see tables.UserSchema for the order.
type UserRecord struct {
	Username        string `json:"username"`
	Password        string `json:"-"`
	VehicleNumber   string `json:"vehicle_number"`
	VehicleRDNumber string `json:"vehicle_rd_number"`
	Phone           string `json:"phone_number"`
	GPSID           string `json:"gps_id"`
	Amount          string `json:"amount"`
	Name            string `json:"name"`
	Address         string `json:"address"`
	VehicleType     string `json:"vehicle_type"`
}

// Credential is a plaintext username/password pair from a credential table.
type Credential struct {
	Username string
	Password string
}
