package token

import "strconv"

func formatSubject(userID int64) string {
	return strconv.FormatInt(userID, 10)
}

func parseSubject(raw string) (int64, error) {
	return strconv.ParseInt(raw, 10, 64)
}
