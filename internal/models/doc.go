// Package models defines the entities shared by the clipy fronts and the credits API.
//
// The package contains two categories of types:
//
// 1. Auth service payloads, decoded from the hosted auth REST API
//   - [User] : the signed-in account and its provider metadata
//   - [Session] : access and refresh tokens with their expiry
//
// 2. Persistent entities, stored in sqlite by the repositories package
//   - [Profile] : per-user credit balance
package models
