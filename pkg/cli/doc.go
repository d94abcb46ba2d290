// Package cli implements the rocketboy command line.
//
// Commands:
//
//	serve      run the API server
//	send       send one request with scripts and assertions
//	scan       run a ZAP scan, locally or on a server
//	keys       manage stored keys
//	import     import requests into a saved collection
//	export     export a saved collection
//	loadtest   run an external load test
//	health     check a running server
//	config     show the effective configuration
//	version    show version information
//
// Every command reads the layered configuration described in
// internal/cliconfig. Client commands reach the server at serverUrl, or at
// http://<listenAddr> when that is unset.
package cli
