// Package txbuilder assembles the raw Bitcoin transactions the withdrawal
// pipeline needs: spending available UTXOs to pay a batch of withdrawal
// requests plus a change output, and producing the BIP-143 witness
// sighashes internal/signer signs over. Bitcoin transaction serialization
// is an external collaborator's job, kept out of the state machine's
// correctness surface the same way derivation, fee estimation, and
// broadcasting are.
package txbuilder

import (
	"bytes"
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"

	"github.com/Fantasim/ckbtc-minter/internal/minter"
)

// sigHashType is the sighash flag every custodial P2WPKH input signs with.
const sigHashType = txscript.SigHashAll

// feeOverheadVbytes is a fixed per-transaction overhead (version, locktime,
// segwit marker/flag, input/output counts) added on top of the per-input
// and per-output estimates below.
const feeOverheadVbytes = 11

// Build spends utxos to pay requests, appending a change output back to
// changeAddress when the remainder exceeds dust, and returns the unsigned
// transaction plus the per-input witness sighashes custodialPubKey's holder
// must sign.
func Build(utxos []minter.Utxo, requests []minter.RetrieveBtcRequest, feePerVbyte minter.MillisatoshiPerByte, changeAddress minter.BitcoinAddress, net *chaincfg.Params, custodialPubKey []byte) (*wire.MsgTx, [][]byte, *minter.ChangeOutput, error) {
	if len(utxos) == 0 {
		return nil, nil, nil, fmt.Errorf("txbuilder: no utxos to spend")
	}
	if len(requests) == 0 {
		return nil, nil, nil, fmt.Errorf("txbuilder: no requests to pay")
	}

	custodialScript, err := p2wpkhScript(custodialPubKey, net)
	if err != nil {
		return nil, nil, nil, err
	}

	tx := wire.NewMsgTx(wire.TxVersion)
	prevOuts := make(map[wire.OutPoint]*wire.TxOut, len(utxos))

	var totalIn int64
	for _, u := range utxos {
		op := wire.NewOutPoint(&u.Outpoint.TxId, u.Outpoint.Vout)
		tx.AddTxIn(wire.NewTxIn(op, nil, nil))
		prevOuts[*op] = wire.NewTxOut(int64(u.ValueSat), custodialScript)
		totalIn += int64(u.ValueSat)
	}

	var totalOut int64
	for _, r := range requests {
		addr, err := btcutil.DecodeAddress(string(r.DestinationAddress), net)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("txbuilder: decode destination %s: %w", r.DestinationAddress, err)
		}
		pkScript, err := txscript.PayToAddrScript(addr)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("txbuilder: build output script for %s: %w", r.DestinationAddress, err)
		}
		tx.AddTxOut(wire.NewTxOut(int64(r.AmountSat), pkScript))
		totalOut += int64(r.AmountSat)
	}

	estimatedVbytes := int64(feeOverheadVbytes + 68*len(utxos) + 31*len(requests))
	fee := estimatedVbytes * int64(feePerVbyte) / 1000
	change := totalIn - totalOut - fee

	var changeOut *minter.ChangeOutput
	const dustLimitSat = 546
	if change > dustLimitSat {
		changeAddr, err := btcutil.DecodeAddress(string(changeAddress), net)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("txbuilder: decode change address: %w", err)
		}
		changeScript, err := txscript.PayToAddrScript(changeAddr)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("txbuilder: build change script: %w", err)
		}
		vout := uint32(len(tx.TxOut))
		tx.AddTxOut(wire.NewTxOut(change, changeScript))
		changeOut = &minter.ChangeOutput{Vout: vout, ValueSat: uint64(change)}
	} else if change < 0 {
		return nil, nil, nil, fmt.Errorf("txbuilder: inputs %d insufficient for outputs %d plus fee %d", totalIn, totalOut, fee)
	}

	fetcher := txscript.NewMultiPrevOutFetcher(prevOuts)
	sigHashes := txscript.NewTxSigHashes(tx, fetcher)

	witnessSigHashes := make([][]byte, len(utxos))
	for i, u := range utxos {
		sigHash, err := txscript.CalcWitnessSigHash(custodialScript, sigHashes, sigHashType, tx, i, int64(u.ValueSat))
		if err != nil {
			return nil, nil, nil, fmt.Errorf("txbuilder: compute sighash for input %d: %w", i, err)
		}
		witnessSigHashes[i] = sigHash
	}

	return tx, witnessSigHashes, changeOut, nil
}

// Finalize attaches a P2WPKH witness built from signatures (DER-encoded,
// one per input, in the same order Build returned its sighashes) and
// serializes the signed transaction ready for broadcast.
func Finalize(tx *wire.MsgTx, custodialPubKey []byte, signatures [][]byte) ([]byte, error) {
	if len(signatures) != len(tx.TxIn) {
		return nil, fmt.Errorf("txbuilder: got %d signatures, want %d", len(signatures), len(tx.TxIn))
	}
	for i, sig := range signatures {
		witnessSig := append(append([]byte{}, sig...), byte(sigHashType))
		tx.TxIn[i].Witness = wire.TxWitness{witnessSig, custodialPubKey}
	}

	var buf bytes.Buffer
	if err := tx.Serialize(&buf); err != nil {
		return nil, fmt.Errorf("txbuilder: serialize signed transaction: %w", err)
	}
	return buf.Bytes(), nil
}

func p2wpkhScript(pubKey []byte, net *chaincfg.Params) ([]byte, error) {
	hash := btcutil.Hash160(pubKey)
	addr, err := btcutil.NewAddressWitnessPubKeyHash(hash, net)
	if err != nil {
		return nil, fmt.Errorf("txbuilder: derive custodial p2wpkh address: %w", err)
	}
	return txscript.PayToAddrScript(addr)
}
