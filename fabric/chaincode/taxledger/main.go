package main

import (
	"os"

	"github.com/hyperledger/fabric-chaincode-go/v2/shim"
	"github.com/hyperledger/fabric-contract-api-go/v2/contractapi"
)

func main() {
	cfg, err := loadConfig(os.Getenv)
	if err != nil {
		panic(err)
	}
	log := newLogger(cfg, os.Stderr)

	cc, err := contractapi.NewChaincode(newContract(log))
	if err != nil {
		log.Fatal().Err(err).Msg("create chaincode")
	}

	if !cfg.asService() {
		if err := cc.Start(); err != nil {
			log.Fatal().Err(err).Msg("start chaincode")
		}
		return
	}

	tls, err := tlsProperties(cfg, os.ReadFile)
	if err != nil {
		log.Fatal().Err(err).Msg("load tls material")
	}
	server := &shim.ChaincodeServer{
		CCID:     cfg.CCID,
		Address:  cfg.Address,
		CC:       cc,
		TLSProps: tls,
	}
	log.Info().Str("address", cfg.Address).Bool("tls", !cfg.TLSDisabled).Msg("serving chaincode")
	if err := server.Start(); err != nil {
		log.Fatal().Err(err).Msg("chaincode server")
	}
}
