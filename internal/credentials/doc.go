// Package credentials resolves the registry API token.
//
// A Source is parsed from "env:NAME" or "file:/path" declarations and read by
// a Resolver. Environment sources may be backed by a dotenv file loaded
// through DotenvLoader before resolution.
package credentials
