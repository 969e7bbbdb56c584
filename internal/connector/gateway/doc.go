// Package gateway implements connector.Connector against an HTTP connector
// gateway: a ccxt-rest style service that speaks each venue's wire protocol
// and exposes unified JSON endpoints under /exchanges/{id}.
//
// Prices and amounts are decoded straight into exact decimals. Transport and
// status failures are classified into the connector error taxonomy before
// they leave this package.
package gateway
