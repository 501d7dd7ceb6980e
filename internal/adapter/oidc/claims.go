package oidc

import (
	"fmt"
	"slices"

	"github.com/golang-jwt/jwt/v5"

	"github.com/roumanok/junto-tic-frontend-sub000/internal/domain/session"
)

// DecodeClaims reads identity claims from a token without verifying its
// signature. Only pass tokens received directly from the token endpoint.
func DecodeClaims(raw, clientID string) (session.Claims, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return session.Claims{}, fmt.Errorf("decode token claims: %w", err)
	}

	sub, _ := claims.GetSubject()
	out := session.Claims{
		Subject:  sub,
		Email:    getStringClaim(claims, "email"),
		Name:     getStringClaim(claims, "name"),
		Username: getStringClaim(claims, "preferred_username"),
	}
	if v, ok := claims["email_verified"].(bool); ok {
		out.EmailVerified = v
	}
	out.Roles = rolesFrom(claims, clientID)
	return out, nil
}

// rolesFrom collects realm_access.roles, resource_access.<client>.roles and a
// top-level roles array.
func rolesFrom(claims jwt.MapClaims, clientID string) []string {
	var roles []string
	if ra := getMapClaim(claims, "realm_access"); ra != nil {
		roles = mergeRoles(roles, stringSlice(ra["roles"]))
	}
	if res := getMapClaim(claims, "resource_access"); res != nil {
		if client, ok := res[clientID].(map[string]any); ok {
			roles = mergeRoles(roles, stringSlice(client["roles"]))
		}
	}
	return mergeRoles(roles, stringSlice(claims["roles"]))
}

func mergeRoles(dst, src []string) []string {
	for _, r := range src {
		if r != "" && !slices.Contains(dst, r) {
			dst = append(dst, r)
		}
	}
	return dst
}

func stringSlice(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		if s, ok := it.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func getStringClaim(claims jwt.MapClaims, key string) string {
	if val, ok := claims[key]; ok {
		if s, ok := val.(string); ok {
			return s
		}
	}
	return ""
}

func getMapClaim(claims jwt.MapClaims, key string) map[string]any {
	if val, ok := claims[key]; ok {
		if m, ok := val.(map[string]any); ok {
			return m
		}
	}
	return nil
}
