package labels

// Default returns the built-in Ethereum mainnet label table
func Default() *Registry {
	return NewRegistry(map[string]Label{
		// Exchanges
		"0x28c6c06298d514db089934071355e5743bf21d60": {Name: "Binance 14", Category: CategoryExchange},
		"0x21a31ee1afc51d94c2efccaa2092ad1028285549": {Name: "Binance 15", Category: CategoryExchange},
		"0xdfd5293d8e347dfe59e90efd55b2956a1343963d": {Name: "Binance 16", Category: CategoryExchange},
		"0xbe0eb53f46cd790cd13851d5eff43d12404d33e8": {Name: "Binance 7", Category: CategoryExchange},
		"0xf977814e90da44bfa03b6295a0616a897441acec": {Name: "Binance 8", Category: CategoryExchange},
		"0x71660c4005ba85c37ccec55d0c4493e66fe775d3": {Name: "Coinbase 1", Category: CategoryExchange},
		"0xa9d1e08c7793af67e9d92fe308d5697fb81d3e43": {Name: "Coinbase 10", Category: CategoryExchange},
		"0x503828976d22510aad0201ac7ec88293211d23da": {Name: "Coinbase 2", Category: CategoryExchange},
		"0x2910543af39aba0cd09dbb2d50200b3e800a63d2": {Name: "Kraken", Category: CategoryExchange},
		"0xda9dfa130df4de4673b89022ee50ff26f6ea73cf": {Name: "Kraken 2", Category: CategoryExchange},
		"0x6cc5f688a315f3dc28a7781717a9a798a59fda7b": {Name: "OKX", Category: CategoryExchange},
		"0x876eabf441b2ee5b5b0554fd502a8e0600950cfa": {Name: "Bitfinex", Category: CategoryExchange},
		"0xd24400ae8bfebb18ca49be86258a3c749cf46853": {Name: "Gemini", Category: CategoryExchange},
		"0x6262998ced04146fa42253a5c0af90ca02dfd2a3": {Name: "Crypto.com", Category: CategoryExchange},

		// DeFi protocols
		"0x7a250d5630b4cf539739df2c5dacb4c659f2488d": {Name: "Uniswap V2 Router", Category: CategoryDeFi},
		"0xe592427a0aece92de3edee1f18e0157c05861564": {Name: "Uniswap V3 Router", Category: CategoryDeFi},
		"0x68b3465833fb72a70ecdf485e0e4c7bd8665fc45": {Name: "Uniswap V3 Router 2", Category: CategoryDeFi},
		"0x3fc91a3afd70395cd496c647d5a6cc9d4b2b7fad": {Name: "Uniswap Universal Router", Category: CategoryDeFi},
		"0x1111111254eeb25477b68fb85ed929f73a960582": {Name: "1inch V5 Router", Category: CategoryDeFi},
		"0xdef1c0ded9bec7f1a1670819833240f027b25eff": {Name: "0x Exchange Proxy", Category: CategoryDeFi},
		"0xd9e1ce17f2641f24ae83637ab66a2cca9c378b9f": {Name: "SushiSwap Router", Category: CategoryDeFi},
		"0x7d2768de32b0b80b7a3454c06bdac94a69ddc7a9": {Name: "Aave V2 Lending Pool", Category: CategoryDeFi},
		"0x87870bca3f3fd6335c3f4ce8392d69350b4fa4e2": {Name: "Aave V3 Pool", Category: CategoryDeFi},
		"0xbebc44782c7db0a1a60cb6fe97d0b483032ff1c7": {Name: "Curve 3pool", Category: CategoryDeFi},
		"0xae7ab96520de3a18e5e111b5eaab095312d7fe84": {Name: "Lido stETH", Category: CategoryDeFi},
	})
}
