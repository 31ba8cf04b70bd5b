//nolint:forbidigo
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/magodo/slog2hclog"
	"github.com/openkcm/common-sdk/pkg/commoncfg"

	"github.com/scimbridge/scimbridge/pkg/clients/scim"
)

const usage = `Script to exercise the SCIM provisioning operations against a live tenant.
Usage: provisionctl [options]
Options:
	--action	Action to perform (ResolveUser, ResolveGroup, Assign, Revoke, ListUsers) (Required)
	--host		The SCIM tenant host (Required)
	--clientID	Client ID for authentication (Required)
	--clientSecret	Client secret value (if using secret auth)
	--certPath	Path to the client certificate file (if using cert-based auth)
	--keyPath	Path to the client private key file (if using cert-based auth)
	--email		Email of the acting user (ResolveUser, Assign, Revoke)
	--group		Group display name (ResolveGroup)
	--groups	Comma-separated group display names (Assign, Revoke)
`

func getLogger() hclog.Logger {
	logLevel := new(slog.LevelVar)
	logLevel.Set(slog.LevelError)

	return slog2hclog.New(slog.Default(), logLevel)
}

func main() {
	log.SetOutput(os.Stdout)
	slog.SetLogLoggerLevel(slog.LevelDebug)

	var action, host, clientID, clientSecret, certPath, keyPath, email, group, groups string

	flag.StringVar(&action, "action", "", "Action to perform (ResolveUser, ResolveGroup, Assign, Revoke, ListUsers)")
	flag.StringVar(&host, "host", "", "SCIM tenant host")
	flag.StringVar(&clientID, "clientID", "", "Client ID")
	flag.StringVar(&clientSecret, "clientSecret", "", "Client Secret")
	flag.StringVar(&certPath, "certPath", "", "Client Certificate Path")
	flag.StringVar(&keyPath, "keyPath", "", "Client Private Key Path")
	flag.StringVar(&email, "email", "", "Email of the acting user")
	flag.StringVar(&group, "group", "", "Group display name")
	flag.StringVar(&groups, "groups", "", "Comma-separated group display names")

	flag.Parse()

	if action == "" || host == "" || clientID == "" {
		fmt.Print(usage)
		os.Exit(1)
	}

	ctx := context.Background()

	var secretRef commoncfg.SecretRef
	if certPath != "" && keyPath != "" {
		secretRef = commoncfg.SecretRef{
			Type: commoncfg.MTLSSecretType,
			MTLS: commoncfg.MTLS{
				Cert: commoncfg.SourceRef{
					Source: commoncfg.FileSourceValue,
					File: commoncfg.CredentialFile{
						Path:   certPath,
						Format: commoncfg.BinaryFileFormat,
					},
				},
				CertKey: commoncfg.SourceRef{
					Source: commoncfg.FileSourceValue,
					File: commoncfg.CredentialFile{
						Path:   keyPath,
						Format: commoncfg.BinaryFileFormat,
					},
				},
			},
		}
	} else {
		secretRef = commoncfg.SecretRef{
			Type: commoncfg.BasicSecretType,
			Basic: commoncfg.BasicAuth{
				Username: commoncfg.SourceRef{
					Source: commoncfg.EmbeddedSourceValue,
					Value:  clientID,
				},
				Password: commoncfg.SourceRef{
					Source: commoncfg.EmbeddedSourceValue,
					Value:  clientSecret,
				},
			},
		}
	}

	client, err := scim.NewClientFromAPI(scim.APIParams{
		Host: commoncfg.SourceRef{
			Source: commoncfg.EmbeddedSourceValue,
			Value:  host,
		},
		Auth:   secretRef,
		Logger: getLogger(),
	})
	if err != nil {
		fmt.Println("Error creating SCIM client:", err.Error())
		os.Exit(1)
	}

	switch action {
	case "ResolveUser":
		resolveUser(ctx, client, email)
	case "ResolveGroup":
		resolveGroup(ctx, client, group)
	case "Assign":
		applyMembership(ctx, client, email, groups, scim.MembershipAdd)
	case "Revoke":
		applyMembership(ctx, client, email, groups, scim.MembershipRemove)
	case "ListUsers":
		listUsers(ctx, client)
	default:
		fmt.Println("Invalid action. Supported actions are: ResolveUser, ResolveGroup, Assign, Revoke, ListUsers")
		os.Exit(1)
	}
}

func resolveUser(ctx context.Context, client *scim.Client, email string) {
	userID, err := client.LookupUserIDByEmail(ctx, email)
	if err != nil {
		fmt.Println("Error resolving user:", err.Error())
		os.Exit(1)
	}

	if userID == "" {
		fmt.Println("No user found for email", email)
		return
	}

	fmt.Println("Resolved user ID:", userID)
}

func resolveGroup(ctx context.Context, client *scim.Client, group string) {
	groupID, err := client.LookupGroupIDByName(ctx, group)
	if err != nil {
		fmt.Println("Error resolving group:", err.Error())
		os.Exit(1)
	}

	if groupID == "" {
		fmt.Println("No group found for name", group)
		return
	}

	fmt.Println("Resolved group ID:", groupID)
}

func applyMembership(ctx context.Context, client *scim.Client, email, groups string, op scim.MembershipOp) {
	if email == "" || groups == "" {
		fmt.Println("email and groups are required for membership actions")
		os.Exit(1)
	}

	userID, err := client.LookupUserIDByEmail(ctx, email)
	if err != nil {
		fmt.Println("Error resolving user:", err.Error())
		os.Exit(1)
	}

	if userID == "" {
		fmt.Println("No user found for email", email)
		os.Exit(1)
	}

	actions := []scim.GroupAction{}

	for _, name := range strings.Split(groups, ",") {
		name = strings.TrimSpace(name)

		groupID, err := client.LookupGroupIDByName(ctx, name)
		if err != nil {
			fmt.Println("Error resolving group:", err.Error())
			os.Exit(1)
		}

		if groupID == "" {
			fmt.Println("Skipping unresolved group", name)
			continue
		}

		actions = append(actions, scim.GroupAction{GroupID: groupID, Op: op})
	}

	if len(actions) == 0 {
		fmt.Println("No groups resolved; nothing submitted")
		return
	}

	response, err := client.SubmitBulk(ctx, scim.BuildMultiGroupBulkRequest(userID, actions))
	if err != nil {
		fmt.Println("Error submitting bulk request:", err.Error())
		os.Exit(1)
	}

	fmt.Printf("Submitted %d operations, tenant reported %d results\n",
		len(actions), len(response.Operations))
}

func listUsers(ctx context.Context, client *scim.Client) {
	count := 100

	users, err := client.ListUsers(ctx, http.MethodGet, scim.NullFilterExpression{}, nil, &count, nil)
	if err != nil {
		fmt.Println("Error listing users:", err.Error())
		os.Exit(1)
	}

	fmt.Println("Found Users:")

	for _, user := range users.Resources {
		fmt.Println(user.UserName)
	}
}
