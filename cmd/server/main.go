package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"os"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/hivereader/hivereader/broadcast"
	"github.com/hivereader/hivereader/community"
	"github.com/hivereader/hivereader/content"
	"github.com/hivereader/hivereader/hiveapi"
	"github.com/hivereader/hivereader/server"
	"github.com/hivereader/hivereader/store"
	"github.com/hivereader/hivereader/utils/dotenv"
	. "github.com/hivereader/hivereader/utils/log"
)

// signerBridge forwards operation envelopes to the external signing service
// (the wallet/keychain capability). The private keys never enter this
// process for keychain logins; for direct-key logins the service holds them.
type signerBridge struct {
	url    string
	client *http.Client
}

func (b *signerBridge) request(username string, ops []broadcast.Operation, authority broadcast.Authority, callback func(broadcast.KeychainResponse)) {
	payload, err := json.Marshal(map[string]interface{}{
		"username":   username,
		"operations": ops,
		"authority":  authority,
	})
	if err != nil {
		callback(broadcast.KeychainResponse{Error: err.Error()})
		return
	}
	b.post(payload, callback)
}

// broadcast submits operations for a direct-key login. The key map resolved
// from the key store travels in the payload, so the service signs with
// exactly the key on file for the user.
func (b *signerBridge) broadcast(ops []broadcast.Operation, keys map[broadcast.Authority]string, callback func(err error, result interface{})) {
	payload, err := json.Marshal(map[string]interface{}{
		"operations": ops,
		"keys":       keys,
	})
	if err != nil {
		callback(err, nil)
		return
	}
	b.post(payload, func(resp broadcast.KeychainResponse) {
		if resp.Success {
			callback(nil, nil)
			return
		}
		callback(stringError(resp.Error), nil)
	})
}

func (b *signerBridge) post(payload []byte, callback func(broadcast.KeychainResponse)) {
	go func() {
		res, err := b.client.Post(b.url, "application/json", bytes.NewReader(payload))
		if err != nil {
			callback(broadcast.KeychainResponse{Error: err.Error()})
			return
		}
		defer res.Body.Close()

		var parsed broadcast.KeychainResponse
		if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
			callback(broadcast.KeychainResponse{Error: err.Error()})
			return
		}
		callback(parsed)
	}()
}

// envKeyStore reads direct-login posting keys from the HIVEREADER_KEYS env
// var, a json object of "<username>/<authority>" to wif entries. Meant for
// development setups only.
type envKeyStore map[string]string

func loadEnvKeyStore() envKeyStore {
	keys := envKeyStore{}
	if raw := os.Getenv("HIVEREADER_KEYS"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &keys); err != nil {
			Log.Warn("fail to parse HIVEREADER_KEYS: ", err)
		}
	}
	return keys
}

func (s envKeyStore) PrivateKey(username string, authority broadcast.Authority) string {
	return s[username+"/"+string(authority)]
}

func buildSigners(bridge *signerBridge, keys envKeyStore) map[broadcast.LoginMethod]broadcast.Signer {
	return map[broadcast.LoginMethod]broadcast.Signer{
		broadcast.MethodKeychain:  broadcast.NewKeychainSigner(bridge.request),
		broadcast.MethodDirectKey: broadcast.NewDirectKeySigner(bridge.broadcast, keys),
	}
}

type stringError string

func (e stringError) Error() string { return string(e) }

func main() {
	if err := dotenv.LoadDotEnvs(); err != nil {
		panic(err)
	}

	hive := hiveapi.NewClient(os.Getenv("HIVE_API_ENDPOINT"))

	var mirror community.Mirror
	if redisMirror, err := store.GetCommunityMirror(); err != nil {
		Log.Warn("running without a durable community mirror: ", err)
	} else {
		mirror = redisMirror
	}
	communities := community.NewCache(hive, mirror)

	var drafts *store.DraftStore
	if db, err := store.GetDBConnection(); err != nil {
		Log.Warn("running without draft storage: ", err)
	} else {
		if err := store.AutoMigrate(db); err != nil {
			Log.Fatal("fail to migrate draft storage: ", err)
		}
		drafts = store.NewDraftStore(db)
	}

	sessions := server.NewSessionStore()
	bridge := &signerBridge{
		url:    os.Getenv("HIVEREADER_SIGNER_URL"),
		client: &http.Client{},
	}
	gateway := broadcast.NewGateway(buildSigners(bridge, loadEnvKeyStore()), sessions.MethodFor, communities)

	handlers := &server.Handlers{
		Hive:        hive,
		Pipeline:    content.NewPipeline(),
		Communities: communities,
		Gateway:     gateway,
		Drafts:      drafts,
		Sessions:    sessions,
		Registry:    server.NewLoaderRegistry(),
		ProxyHost:   os.Getenv("IMAGE_PROXY_HOST"),
		Origin:      os.Getenv("HIVEREADER_ORIGIN"),
	}

	// Default With the Logger and Recovery middleware already attached
	router := gin.Default()
	router.Use(cors.Default())
	handlers.RegisterRoutes(router)

	Log.Info("api server starts up")
	router.Run(":8080")
}
