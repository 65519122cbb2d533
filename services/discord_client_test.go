package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func newFakeDiscord(t *testing.T) (*DiscordClient, *httptest.Server) {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		if r.PostFormValue("code") != "good-code" {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		require.Equal(t, "authorization_code", r.PostFormValue("grant_type"))
		w.Write([]byte(`{"access_token":"at-1","token_type":"Bearer"}`))
	})
	mux.HandleFunc("/users/@me", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer at-1", r.Header.Get("Authorization"))
		w.Write([]byte(`{"id":"U1","username":"tester","discriminator":"0001","avatar":"av"}`))
	})
	mux.HandleFunc("/guilds/guild-1/members/U1", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bot bot-token", r.Header.Get("Authorization"))
		w.Write([]byte(`{"roles":["R1","R2"]}`))
	})
	mux.HandleFunc("/guilds/guild-1/members/stranger", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"message":"Unknown Member"}`))
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return &DiscordClient{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		BotToken:     "bot-token",
		GuildID:      "guild-1",
		RedirectURI:  "http://localhost:8080",
		BaseURL:      server.URL,
		Client:       server.Client(),
	}, server
}

func TestExchangeCode(t *testing.T) {
	client, _ := newFakeDiscord(t)

	token, err := client.ExchangeCode(context.Background(), "good-code")
	require.NoError(t, err)
	require.Equal(t, "at-1", token.AccessToken)
	require.Equal(t, "Bearer", token.TokenType)
}

func TestExchangeCodeEmpty(t *testing.T) {
	client, _ := newFakeDiscord(t)

	_, err := client.ExchangeCode(context.Background(), "")
	require.ErrorIs(t, err, ErrNoCode)
}

func TestExchangeCodeRejected(t *testing.T) {
	client, _ := newFakeDiscord(t)

	_, err := client.ExchangeCode(context.Background(), "bad-code")
	require.Error(t, err)
}

func TestFetchUser(t *testing.T) {
	client, _ := newFakeDiscord(t)

	user, err := client.FetchUser(context.Background(), &DiscordToken{AccessToken: "at-1", TokenType: "Bearer"})
	require.NoError(t, err)
	require.Equal(t, "U1", user.ID)
	require.Equal(t, "tester", user.Username)
}

func TestFetchMember(t *testing.T) {
	client, _ := newFakeDiscord(t)

	member, err := client.FetchMember(context.Background(), "U1")
	require.NoError(t, err)
	require.Equal(t, []string{"R1", "R2"}, member.Roles)
}

// A 404 from the member endpoint is the "not in the server" negative
// result, not a lookup failure.
func TestFetchMemberNotAMember(t *testing.T) {
	client, _ := newFakeDiscord(t)

	_, err := client.FetchMember(context.Background(), "stranger")
	require.ErrorIs(t, err, ErrNotAMember)
}
