package listsync

import (
	gojwt "github.com/golang-jwt/jwt/v5"
)

// identity claims carried by the session access token.
// the token is issued and verified by the external authority;
// the client only needs the claims, so the parse is unverified.
type SessionToken struct {
	Raw       string
	UserId    int64
	Email     string
	FirstName string
}

func ParseSessionTokenUnverified(accessToken string) (*SessionToken, error) {
	parser := gojwt.NewParser()
	token, _, err := parser.ParseUnverified(accessToken, gojwt.MapClaims{})
	if err != nil {
		return nil, err
	}

	claims := token.Claims.(gojwt.MapClaims)

	sessionToken := &SessionToken{
		Raw: accessToken,
	}

	if userId, ok := claims["user_id"]; ok {
		// json numbers decode as float64
		switch v := userId.(type) {
		case float64:
			sessionToken.UserId = int64(v)
		}
	}
	if email, ok := claims["email"]; ok {
		if v, ok := email.(string); ok {
			sessionToken.Email = v
		}
	}
	if firstName, ok := claims["first_name"]; ok {
		if v, ok := firstName.(string); ok {
			sessionToken.FirstName = v
		}
	}

	return sessionToken, nil
}
