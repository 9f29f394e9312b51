// Package clientcli provides a client library for the itemgate HTTP API.
//
// It covers signup, login, item CRUD and image upload. Requests under /api
// carry the bearer token from the resolved configuration. The package also
// manages a YAML profile file so a token obtained by login can be reused
// across invocations.
//
// # Basic Usage
//
// Log in and create an item:
//
//	client, err := clientcli.New(&clientcli.Config{Endpoint: "http://localhost:3000"})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	if _, err := client.Login(ctx, "me@example.com", password); err != nil {
//		log.Fatal(err)
//	}
//
//	item, err := client.CreateItem(ctx, itemgate.Fields{"name": "widget"})
//
// # Profile Configuration
//
// Profiles live in ~/.itemgate/config.yaml:
//
//	profiles:
//	  - name: local
//	    endpoint: http://localhost:3000
//	    email: me@example.com
//	    token: eyJhbGciOi...
//	    default: true
//
// Resolve one into a Config:
//
//	configFile, err := clientcli.LoadConfigFile(clientcli.DefaultConfigPath())
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	profile, err := configFile.GetProfile("local")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	client, err := clientcli.New(clientcli.ConfigFromProfile(profile))
//
// ITEMGATE_ENDPOINT and ITEMGATE_TOKEN override profile values;
// ITEMGATE_PROFILE and ITEMGATE_CONFIG select the profile and file.
//
// # Output Formatting
//
// Use formatters for human-readable or JSON output:
//
//	formatter := clientcli.NewFormatter(jsonOutput, quiet)
//	formatter.FormatItems(os.Stdout, items)
package clientcli
