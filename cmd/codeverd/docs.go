//go:generate swag init -g docs.go -o ../../docs --parseDependency --parseInternal --dir .,../../internal/httpapi

package main

// @title codeverd API
// @version 1.0
// @description Local API of the codever sync daemon. Every view is served from the in-process stores, which keep themselves consistent across snippet and user data changes.
// @BasePath /v1
