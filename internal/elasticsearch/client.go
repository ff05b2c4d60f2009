// Copyright Elasticsearch B.V. and/or licensed to Elasticsearch B.V. under one
// or more contributor license agreements. Licensed under the Elastic License;
// you may not use this file except in compliance with the Elastic License.

// Package elasticsearch implements the engine port. It exposes the narrow set
// of operations the control plane needs and hides the engine's REST surface
// behind it.
package elasticsearch

import (
	"crypto/tls"
	"fmt"
	"net/http"
	"os"

	"github.com/elastic/go-elasticsearch/v7"

	"github.com/elastic/search-ops/internal/configuration"
	"github.com/elastic/search-ops/internal/retry"
)

// clientOptions are used to configure a client.
type clientOptions struct {
	address  string
	username string
	password string

	retryMax int

	// skipTLSVerify disables TLS validation.
	skipTLSVerify bool
}

// defaultOptionsFromEnv returns clientOptions initialized with values from environment variables.
func defaultOptionsFromEnv() clientOptions {
	return clientOptions{
		address:  os.Getenv(configuration.ElasticsearchHostEnv),
		username: os.Getenv(configuration.ElasticsearchUsernameEnv),
		password: os.Getenv(configuration.ElasticsearchPasswordEnv),
	}
}

// ClientOption customizes the client under construction.
type ClientOption func(*clientOptions)

// OptionWithAddress sets the address to be used by the client.
func OptionWithAddress(address string) ClientOption {
	return func(opts *clientOptions) {
		opts.address = address
	}
}

// OptionWithCredentials sets the basic auth credentials to be used by the client.
func OptionWithCredentials(username, password string) ClientOption {
	return func(opts *clientOptions) {
		opts.username = username
		opts.password = password
	}
}

// OptionWithRetryMax enables transport-level retries.
func OptionWithRetryMax(retryMax int) ClientOption {
	return func(opts *clientOptions) {
		opts.retryMax = retryMax
	}
}

// OptionWithSkipTLSVerify disables TLS validation.
func OptionWithSkipTLSVerify() ClientOption {
	return func(opts *clientOptions) {
		opts.skipTLSVerify = true
	}
}

// OptionsFromConfiguration applies the engine settings from the configuration.
func OptionsFromConfiguration(config configuration.EngineConfig) []ClientOption {
	options := []ClientOption{
		OptionWithAddress(config.Address),
		OptionWithCredentials(config.Username, config.Password),
		OptionWithRetryMax(config.RetryMax),
	}
	if config.SkipTLSVerify {
		options = append(options, OptionWithSkipTLSVerify())
	}
	return options
}

// NewClient method creates a new instance of the engine client.
func NewClient(customOptions ...ClientOption) (*Client, error) {
	options := defaultOptionsFromEnv()
	for _, option := range customOptions {
		option(&options)
	}

	if options.address == "" {
		return nil, fmt.Errorf("undefined engine address (missing %s)", configuration.ElasticsearchHostEnv)
	}

	httpClient := &http.Client{}
	if options.skipTLSVerify {
		httpClient.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}
	httpClient = retry.WrapHTTPClient(httpClient, retry.HTTPOptions{RetryMax: options.retryMax})

	config := elasticsearch.Config{
		Addresses: []string{options.address},
		Username:  options.username,
		Password:  options.password,
		Transport: httpClient.Transport,
	}

	client, err := elasticsearch.NewClient(config)
	if err != nil {
		return nil, fmt.Errorf("can't create engine client: %w", err)
	}
	return &Client{es: client}, nil
}

// Client implements the Engine port against an Elasticsearch cluster.
type Client struct {
	es *elasticsearch.Client
}
