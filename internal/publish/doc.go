// Package publish releases a built artifact to remote repositories.
//
// Every configured target is independent: each runs concurrently, reports
// its own outcome, and a failure of one never stops the others. Within a
// target an upload is all-or-nothing. Credentials are looked up by name at
// publish time and never written anywhere; a missing credential fails the
// target before any network traffic.
package publish
